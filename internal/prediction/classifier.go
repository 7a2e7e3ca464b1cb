package prediction

import (
	"fmt"

	"evbot/internal/models"
)

// Classifier maps an encoded feature vector to a class id. Implementations are safe for concurrent use.
type Classifier interface {
	Predict(vector []float64) (int, error)
	NumFeatures() int
	Classes() []int
	Close() error
}

type classInfo struct {
	resultType models.ResultType
	message    string
}

var classMessages = map[int]classInfo{
	0: {models.ResultTypeShort, "Optimal Charging: Short Duration - Excellent battery health!"},
	1: {models.ResultTypeMedium, "Optimal Charging: Medium Duration - Normal battery condition."},
	2: {models.ResultTypeLong, "Optimal Charging: Long Duration - Battery maintenance recommended."},
}

// DescribeClass returns the result type and user message for a class id.
// Ids outside the known table fall back to "short" with a generic message.
func DescribeClass(classID int) (models.ResultType, string) {
	if info, ok := classMessages[classID]; ok {
		return info.resultType, info.message
	}
	return models.ResultTypeShort, fmt.Sprintf("Prediction: Class %d", classID)
}

// KnownClass reports whether classID has a dedicated message.
func KnownClass(classID int) bool {
	_, ok := classMessages[classID]
	return ok
}
