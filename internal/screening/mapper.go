package screening

import "strconv"

// SimplePayload is the request body expected by the inference service's
// simple symptom model.
type SimplePayload struct {
	AgeYrs          float64 `json:"age_yrs"`
	BMI             float64 `json:"bmi"`
	PulseRateBPM    float64 `json:"pulse_rate_bpm"`
	RRBreathsMin    float64 `json:"rr_breaths_min"`
	HbGDl           float64 `json:"hb_g_dl"`
	CycleRI         string  `json:"cycle_r_i"`
	CycleLengthDays float64 `json:"cycle_length_days"`
	WeightGainYN    int     `json:"weight_gain_y_n"`
	HairGrowthYN    int     `json:"hair_growth_y_n"`
	SkinDarkeningYN int     `json:"skin_darkening_y_n"`
	HairLossYN      int     `json:"hair_loss_y_n"`
	PimplesYN       int     `json:"pimples_y_n"`
	FastFoodYN      int     `json:"fast_food_y_n"`
	RegExerciseYN   int     `json:"reg_exercise_y_n"`
	BPSystolicMmHg  float64 `json:"bp_systolic_mmhg"`
	BPDiastolicMmHg float64 `json:"bp_diastolic_mmhg"`
}

// ClinicalPayload extends the simple payload with laboratory values. Missing
// labs are encoded as JSON null.
type ClinicalPayload struct {
	SimplePayload
	IBetaHCGmIUmL  *float64 `json:"i_beta_hcg_miu_ml"`
	IIBetaHCGmIUmL *float64 `json:"ii_beta_hcg_miu_ml"`
	FSHmIUmL       *float64 `json:"fsh_miu_ml"`
	LHmIUmL        *float64 `json:"lh_miu_ml"`
	FSHLH          *float64 `json:"fsh_lh"`
	TSHmIUL        *float64 `json:"tsh_miu_l"`
	AMHngmL        *float64 `json:"amh_ng_ml"`
	PRLngmL        *float64 `json:"prl_ng_ml"`
	VitD3ngmL      *float64 `json:"vit_d3_ng_ml"`
	PRGngmL        *float64 `json:"prg_ng_ml"`
	RBSmgdL        *float64 `json:"rbs_mg_dl"`
}

// MapSimple renames a record into the simple inference schema.
func MapSimple(r Record) SimplePayload {
	return SimplePayload{
		AgeYrs:          r.Age,
		BMI:             r.BMI,
		PulseRateBPM:    r.PulseRate,
		RRBreathsMin:    r.RespiratoryRate,
		HbGDl:           r.Hemoglobin,
		CycleRI:         strconv.Itoa(r.CycleType),
		CycleLengthDays: r.AverageCycleLength,
		WeightGainYN:    r.WeightGain,
		HairGrowthYN:    r.HairGrowth,
		SkinDarkeningYN: r.SkinDarkening,
		HairLossYN:      r.HairLoss,
		PimplesYN:       r.Pimples,
		FastFoodYN:      r.FastFood,
		RegExerciseYN:   r.RegularExercise,
		BPSystolicMmHg:  r.BPSystolic,
		BPDiastolicMmHg: r.BPDiastolic,
	}
}

// MapClinical renames a record into the clinical inference schema.
func MapClinical(r Record) ClinicalPayload {
	return ClinicalPayload{
		SimplePayload:  MapSimple(r),
		IBetaHCGmIUmL:  copyLab(r.Labs.BetaHCG1),
		IIBetaHCGmIUmL: copyLab(r.Labs.BetaHCG2),
		FSHmIUmL:       copyLab(r.Labs.FSH),
		LHmIUmL:        copyLab(r.Labs.LH),
		FSHLH:          copyLab(r.Labs.FSHLHRatio),
		TSHmIUL:        copyLab(r.Labs.TSH),
		AMHngmL:        copyLab(r.Labs.AMH),
		PRLngmL:        copyLab(r.Labs.Prolactin),
		VitD3ngmL:      copyLab(r.Labs.VitaminD3),
		PRGngmL:        copyLab(r.Labs.Progesterone),
		RBSmgdL:        copyLab(r.Labs.RandomBloodSugar),
	}
}

// MapPayload selects the schema matching the record's variant.
func MapPayload(r Record) any {
	if r.Variant == VariantClinical {
		return MapClinical(r)
	}
	return MapSimple(r)
}

func copyLab(value *float64) *float64 {
	if value == nil || *value == 0 {
		return nil
	}
	v := *value
	return &v
}
