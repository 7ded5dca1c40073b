package screening

import (
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"

	"github.com/spf13/cast"
)

// CycleTypeMessage is returned when the cycle code is outside the allowed set.
const CycleTypeMessage = "menstrualCycleType must be 2 (Regular) or 4 (Irregular)"

// ValidateRequired fails with the first field that is absent or null. Falsy
// values such as 0 or false count as present.
func ValidateRequired(input Input, fields []string) error {
	for _, field := range fields {
		value, ok := input[field]
		if !ok || isNull(value) {
			return missingField(field)
		}
	}
	return nil
}

// ValidateCycleType checks that the cycle code renders as "2" or "4".
func ValidateCycleType(value any) (string, error) {
	text := cycleText(value)
	if text != "2" && text != "4" {
		return "", &ValidationError{Field: FieldMenstrualCycleType, Message: CycleTypeMessage}
	}
	return text, nil
}

// Parse validates the input for the given variant and returns the normalized
// record used for storage and for the inference payload.
func Parse(input Input, variant Variant) (Record, error) {
	if err := ValidateRequired(input, RequiredFields(variant)); err != nil {
		return Record{}, err
	}

	cycle, err := ValidateCycleType(input[FieldMenstrualCycleType])
	if err != nil {
		return Record{}, err
	}

	record := Record{Variant: variant, CycleType: CycleRegular}
	if cycle == "4" {
		record.CycleType = CycleIrregular
	}

	numbers := []struct {
		field  string
		target *float64
	}{
		{FieldAge, &record.Age},
		{FieldBMI, &record.BMI},
		{FieldPulseRate, &record.PulseRate},
		{FieldRespiratoryRate, &record.RespiratoryRate},
		{FieldHemoglobin, &record.Hemoglobin},
		{FieldAverageCycleLength, &record.AverageCycleLength},
		{FieldBPSystolic, &record.BPSystolic},
		{FieldBPDiastolic, &record.BPDiastolic},
	}
	for _, n := range numbers {
		value, err := toNumber(input[n.field])
		if err != nil {
			return Record{}, &ValidationError{Field: n.field, Message: fmt.Sprintf("%s must be a number", n.field)}
		}
		*n.target = value
	}

	record.WeightGain = ToBinary(input[FieldWeightGain])
	record.HairGrowth = ToBinary(input[FieldHairGrowth])
	record.SkinDarkening = ToBinary(input[FieldSkinDarkening])
	record.HairLoss = ToBinary(input[FieldHairLoss])
	record.Pimples = ToBinary(input[FieldPimples])
	record.FastFood = ToBinary(input[FieldFastFood])
	record.RegularExercise = ToBinary(input[FieldRegularExercise])

	if variant == VariantClinical {
		record.Labs = Labs{
			BetaHCG1:         labValue(input[FieldBetaHCG1]),
			BetaHCG2:         labValue(input[FieldBetaHCG2]),
			FSH:              labValue(input[FieldFSH]),
			LH:               labValue(input[FieldLH]),
			FSHLHRatio:       labValue(input[FieldFSHLHRatio]),
			TSH:              labValue(input[FieldTSH]),
			AMH:              labValue(input[FieldAMH]),
			Prolactin:        labValue(input[FieldProlactin]),
			VitaminD3:        labValue(input[FieldVitaminD3]),
			Progesterone:     labValue(input[FieldProgesterone]),
			RandomBloodSugar: labValue(input[FieldRandomBloodSugar]),
		}
	}

	return record, nil
}

func isNull(value any) bool {
	if value == nil {
		return true
	}
	rv := reflect.ValueOf(value)
	return rv.Kind() == reflect.Pointer && rv.IsNil()
}

func cycleText(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32)
	case bool:
		return strconv.FormatBool(v)
	default:
		return cast.ToString(value)
	}
}

func toNumber(value any) (float64, error) {
	if text, ok := value.(string); ok {
		value = strings.TrimSpace(text)
	}
	number, err := cast.ToFloat64E(value)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(number) || math.IsInf(number, 0) {
		return 0, fmt.Errorf("value is not finite")
	}
	return number, nil
}

// labValue applies the "zero means missing" policy: absent, false, empty and
// zero values, as well as values that are not numbers, become nil.
func labValue(value any) *float64 {
	if isNull(value) {
		return nil
	}
	if flag, ok := value.(bool); ok && !flag {
		return nil
	}
	number, err := toNumber(value)
	if err != nil || number == 0 {
		return nil
	}
	return &number
}
