package prediction

// Kind is the type a raw input value is cast to.
type Kind int

const (
	KindFloat Kind = iota
	KindInt
	KindString
)

func (k Kind) String() string {
	switch k {
	case KindFloat:
		return "float"
	case KindInt:
		return "int"
	case KindString:
		return "string"
	default:
		return "unknown"
	}
}

// FeatureSpec binds an input key to the model column it feeds.
type FeatureSpec struct {
	InputKey string
	Column   string
	Kind     Kind
}

// Column names the classifier was trained on.
const (
	ColumnSOC          = "SOC (%)"
	ColumnVoltage      = "Voltage (V)"
	ColumnCurrent      = "Current (A)"
	ColumnBatteryTemp  = "Battery Temp (°C)"
	ColumnAmbientTemp  = "Ambient Temp (°C)"
	ColumnDuration     = "Charging Duration (min)"
	ColumnDegradation  = "Degradation Rate (%)"
	ColumnChargingMode = "Charging Mode"
	ColumnEfficiency   = "Efficiency (%)"
	ColumnBatteryType  = "Battery Type"
	ColumnCycles       = "Charging Cycles"
	ColumnEVModel      = "EV Model"
)

// schema is in model column order. The classifier consumes vectors in exactly this order.
var schema = []FeatureSpec{
	{InputKey: "soc", Column: ColumnSOC, Kind: KindFloat},
	{InputKey: "voltage", Column: ColumnVoltage, Kind: KindFloat},
	{InputKey: "current", Column: ColumnCurrent, Kind: KindFloat},
	{InputKey: "battery_temp", Column: ColumnBatteryTemp, Kind: KindFloat},
	{InputKey: "ambient_temp", Column: ColumnAmbientTemp, Kind: KindFloat},
	{InputKey: "duration", Column: ColumnDuration, Kind: KindFloat},
	{InputKey: "degradation", Column: ColumnDegradation, Kind: KindFloat},
	{InputKey: "mode", Column: ColumnChargingMode, Kind: KindString},
	{InputKey: "efficiency", Column: ColumnEfficiency, Kind: KindFloat},
	{InputKey: "battery_type", Column: ColumnBatteryType, Kind: KindString},
	{InputKey: "cycles", Column: ColumnCycles, Kind: KindInt},
	{InputKey: "ev_model", Column: ColumnEVModel, Kind: KindString},
}

// Schema returns a copy of the feature schema.
func Schema() []FeatureSpec {
	return append([]FeatureSpec(nil), schema...)
}

// NumFeatures is the width of an encoded vector.
func NumFeatures() int {
	return len(schema)
}

// Columns returns the canonical column names in model order.
func Columns() []string {
	out := make([]string, len(schema))
	for i, f := range schema {
		out[i] = f.Column
	}
	return out
}

// InputKeys returns the raw payload keys in model order.
func InputKeys() []string {
	out := make([]string, len(schema))
	for i, f := range schema {
		out[i] = f.InputKey
	}
	return out
}

// CategoricalColumns returns the columns that need a label encoder.
func CategoricalColumns() []string {
	var out []string
	for _, f := range schema {
		if f.Kind == KindString {
			out = append(out, f.Column)
		}
	}
	return out
}
