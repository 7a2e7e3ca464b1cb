package chatbot

// ProviderID identifies the hosted model answering chat turns.
type ProviderID int

const (
	ProviderNone ProviderID = iota
	ProviderOpenAI
	ProviderHuggingFace
)

func (p ProviderID) String() string {
	switch p {
	case ProviderOpenAI:
		return "openai"
	case ProviderHuggingFace:
		return "huggingface"
	default:
		return "none"
	}
}

// Selection is the provider state. It is a value; transitions return a new Selection.
type Selection struct {
	Active         ProviderID
	OpenAIKey      string
	HuggingFaceKey string
}

// InitialSelection picks OpenAI when both keys are present.
func InitialSelection(openAIKey, huggingFaceKey string) Selection {
	s := Selection{OpenAIKey: openAIKey, HuggingFaceKey: huggingFaceKey}
	switch {
	case openAIKey != "":
		s.Active = ProviderOpenAI
	case huggingFaceKey != "":
		s.Active = ProviderHuggingFace
	}
	return s
}

// ConfigureOpenAI sets or clears the OpenAI key. A non-empty key always activates OpenAI.
// Clearing the active provider falls back to Hugging Face when it still has a key.
func (s Selection) ConfigureOpenAI(key string) Selection {
	next := s
	next.OpenAIKey = key
	if key != "" {
		next.Active = ProviderOpenAI
		return next
	}
	if next.Active == ProviderOpenAI {
		next.Active = ProviderNone
	}
	if next.Active == ProviderNone && next.HuggingFaceKey != "" {
		next.Active = ProviderHuggingFace
	}
	return next
}

// ConfigureHuggingFace mirrors ConfigureOpenAI.
func (s Selection) ConfigureHuggingFace(key string) Selection {
	next := s
	next.HuggingFaceKey = key
	if key != "" {
		next.Active = ProviderHuggingFace
		return next
	}
	if next.Active == ProviderHuggingFace {
		next.Active = ProviderNone
	}
	if next.Active == ProviderNone && next.OpenAIKey != "" {
		next.Active = ProviderOpenAI
	}
	return next
}

// ActiveKey returns the credential of the active provider.
func (s Selection) ActiveKey() string {
	switch s.Active {
	case ProviderOpenAI:
		return s.OpenAIKey
	case ProviderHuggingFace:
		return s.HuggingFaceKey
	default:
		return ""
	}
}
