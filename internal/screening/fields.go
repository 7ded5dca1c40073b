package screening

import "strings"

// Variant identifies the shape of a screening submission.
type Variant string

const (
	// VariantSimple carries the sixteen symptom and vital fields.
	VariantSimple Variant = "simple"
	// VariantClinical adds optional laboratory values to the simple fields.
	VariantClinical Variant = "clinical"
	// VariantImage carries an ultrasound image reference only.
	VariantImage Variant = "image"
)

// ParseVariant resolves a path segment into a known variant.
func ParseVariant(value string) (Variant, bool) {
	switch Variant(strings.ToLower(strings.TrimSpace(value))) {
	case VariantSimple:
		return VariantSimple, true
	case VariantClinical:
		return VariantClinical, true
	case VariantImage:
		return VariantImage, true
	default:
		return "", false
	}
}

// Label is the capitalised name used in prompts and reports.
func (v Variant) Label() string {
	switch v {
	case VariantClinical:
		return "Clinical"
	case VariantImage:
		return "Image"
	default:
		return "Simple"
	}
}

// Request field names as sent by the browser client.
const (
	FieldAge                = "age"
	FieldBMI                = "bmi"
	FieldPulseRate          = "pulseRate"
	FieldRespiratoryRate    = "respiratoryRate"
	FieldHemoglobin         = "hemoglobin"
	FieldMenstrualCycleType = "menstrualCycleType"
	FieldAverageCycleLength = "averageCycleLength"
	FieldWeightGain         = "weightGain"
	FieldHairGrowth         = "hairGrowth"
	FieldSkinDarkening      = "skinDarkening"
	FieldHairLoss           = "hairLoss"
	FieldPimples            = "pimples"
	FieldFastFood           = "fastFood"
	FieldRegularExercise    = "regularExercise"
	FieldBPSystolic         = "bpSystolic"
	FieldBPDiastolic        = "bpDiastolic"

	FieldBetaHCG1         = "B_HCG_Test1"
	FieldBetaHCG2         = "B_HCG_Test2"
	FieldFSH              = "FSH"
	FieldLH               = "LH"
	FieldFSHLHRatio       = "FSHLH_Ratio"
	FieldTSH              = "TSH"
	FieldAMH              = "AMH"
	FieldProlactin        = "prolactin"
	FieldVitaminD3        = "vitaminD3"
	FieldProgesterone     = "progesterone"
	FieldRandomBloodSugar = "randomBloodSugar"
)

// Cycle type codes accepted by the inference service.
const (
	CycleRegular   = 2
	CycleIrregular = 4
)

// BaseFields lists the required fields in the order they are checked.
var BaseFields = []string{
	FieldAge,
	FieldBMI,
	FieldPulseRate,
	FieldRespiratoryRate,
	FieldHemoglobin,
	FieldMenstrualCycleType,
	FieldAverageCycleLength,
	FieldWeightGain,
	FieldHairGrowth,
	FieldSkinDarkening,
	FieldHairLoss,
	FieldPimples,
	FieldFastFood,
	FieldRegularExercise,
	FieldBPSystolic,
	FieldBPDiastolic,
}

// RequiredFields returns the required field set for a variant. Lab values are
// never required.
func RequiredFields(v Variant) []string {
	switch v {
	case VariantSimple, VariantClinical:
		return BaseFields
	default:
		return nil
	}
}

// Input is a decoded request body with loosely typed values.
type Input map[string]any

// Labs holds optional laboratory values. A nil pointer means the value was not
// supplied.
type Labs struct {
	BetaHCG1         *float64
	BetaHCG2         *float64
	FSH              *float64
	LH               *float64
	FSHLHRatio       *float64
	TSH              *float64
	AMH              *float64
	Prolactin        *float64
	VitaminD3        *float64
	Progesterone     *float64
	RandomBloodSugar *float64
}

// Record is a validated, normalized screening submission.
type Record struct {
	Variant            Variant
	Age                float64
	BMI                float64
	PulseRate          float64
	RespiratoryRate    float64
	Hemoglobin         float64
	CycleType          int
	AverageCycleLength float64
	WeightGain         int
	HairGrowth         int
	SkinDarkening      int
	HairLoss           int
	Pimples            int
	FastFood           int
	RegularExercise    int
	BPSystolic         float64
	BPDiastolic        float64
	Labs               Labs
}

// IrregularCycle reports whether the cycle code marks an irregular cycle.
func (r Record) IrregularCycle() bool {
	return r.CycleType == CycleIrregular
}
