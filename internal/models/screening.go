package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/noah-isme/pcos-screening-api/internal/screening"
)

const (
	// ScreeningStatusPending marks a record whose model output was never attached.
	ScreeningStatusPending = "pending"
	// ScreeningStatusCompleted marks a record carrying the model output.
	ScreeningStatusCompleted = "completed"
)

// ScreeningBase holds the columns shared by every screening table.
type ScreeningBase struct {
	ID          string            `gorm:"primaryKey;size:36" json:"id"`
	UserID      *uint             `gorm:"index" json:"user_id"`
	ModelOutput datatypes.JSONMap `json:"model_output"`
	CreatedAt   time.Time         `gorm:"index" json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

// BeforeCreate assigns a random identifier when none was supplied.
func (b *ScreeningBase) BeforeCreate(*gorm.DB) error {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	return nil
}

// Base exposes the shared columns.
func (b *ScreeningBase) Base() *ScreeningBase {
	return b
}

// IsCompleted reports whether inference output has been stored.
func (b *ScreeningBase) IsCompleted() bool {
	return len(b.ModelOutput) > 0
}

// Status renders the completion state.
func (b *ScreeningBase) Status() string {
	if b.IsCompleted() {
		return ScreeningStatusCompleted
	}
	return ScreeningStatusPending
}

// Symptoms are the vitals and questionnaire answers of the form variants.
type Symptoms struct {
	Age                float64 `gorm:"not null" json:"age"`
	BMI                float64 `gorm:"column:bmi;not null" json:"bmi"`
	PulseRate          float64 `json:"pulseRate"`
	RespiratoryRate    float64 `json:"respiratoryRate"`
	Hemoglobin         float64 `json:"hemoglobin"`
	MenstrualCycleType int     `gorm:"not null" json:"menstrualCycleType"`
	AverageCycleLength float64 `json:"averageCycleLength"`
	WeightGain         bool    `json:"weightGain"`
	HairGrowth         bool    `json:"hairGrowth"`
	SkinDarkening      bool    `json:"skinDarkening"`
	HairLoss           bool    `json:"hairLoss"`
	Pimples            bool    `json:"pimples"`
	FastFood           bool    `json:"fastFood"`
	RegularExercise    bool    `json:"regularExercise"`
	BPSystolic         float64 `gorm:"column:bp_systolic" json:"bpSystolic"`
	BPDiastolic        float64 `gorm:"column:bp_diastolic" json:"bpDiastolic"`
}

// LabResults are the optional clinical values. NULL means not supplied.
type LabResults struct {
	BetaHCG1         *float64 `gorm:"column:beta_hcg1" json:"B_HCG_Test1"`
	BetaHCG2         *float64 `gorm:"column:beta_hcg2" json:"B_HCG_Test2"`
	FSH              *float64 `gorm:"column:fsh" json:"FSH"`
	LH               *float64 `gorm:"column:lh" json:"LH"`
	FSHLHRatio       *float64 `gorm:"column:fsh_lh_ratio" json:"FSHLH_Ratio"`
	TSH              *float64 `gorm:"column:tsh" json:"TSH"`
	AMH              *float64 `gorm:"column:amh" json:"AMH"`
	Prolactin        *float64 `json:"prolactin"`
	VitaminD3        *float64 `gorm:"column:vitamin_d3" json:"vitaminD3"`
	Progesterone     *float64 `json:"progesterone"`
	RandomBloodSugar *float64 `gorm:"column:rbs" json:"randomBloodSugar"`
}

// SimpleScreening is a symptom-only submission.
type SimpleScreening struct {
	ScreeningBase
	Symptoms
}

// TableName pins the table name.
func (SimpleScreening) TableName() string { return "simple_screenings" }

// Variant implements ScreeningRecord.
func (*SimpleScreening) Variant() screening.Variant { return screening.VariantSimple }

// Inputs implements ScreeningRecord.
func (s *SimpleScreening) Inputs() any { return s.Symptoms }

// ClinicalScreening is a symptom submission with optional lab values.
type ClinicalScreening struct {
	ScreeningBase
	Symptoms
	LabResults
}

// TableName pins the table name.
func (ClinicalScreening) TableName() string { return "clinical_screenings" }

// Variant implements ScreeningRecord.
func (*ClinicalScreening) Variant() screening.Variant { return screening.VariantClinical }

// Inputs implements ScreeningRecord.
func (c *ClinicalScreening) Inputs() any {
	return struct {
		Symptoms
		LabResults
	}{c.Symptoms, c.LabResults}
}

// ImageScreening is an ultrasound upload.
type ImageScreening struct {
	ScreeningBase
	ImageURL    string `gorm:"size:512;not null" json:"imageUrl"`
	PublicID    string `gorm:"size:255" json:"publicId"`
	ContentType string `gorm:"size:64" json:"contentType"`
	SizeBytes   int64  `json:"sizeBytes"`
}

// TableName pins the table name.
func (ImageScreening) TableName() string { return "image_screenings" }

// Variant implements ScreeningRecord.
func (*ImageScreening) Variant() screening.Variant { return screening.VariantImage }

// Inputs implements ScreeningRecord.
func (i *ImageScreening) Inputs() any {
	return map[string]any{"imageUrl": i.ImageURL, "contentType": i.ContentType, "sizeBytes": i.SizeBytes}
}

// ScreeningRecord is implemented by pointers to every screening model.
type ScreeningRecord interface {
	Base() *ScreeningBase
	Variant() screening.Variant
	Inputs() any
}

// NewScreeningRecord returns an empty record for the variant, or nil when the
// variant is unknown.
func NewScreeningRecord(variant screening.Variant) ScreeningRecord {
	switch variant {
	case screening.VariantSimple:
		return &SimpleScreening{}
	case screening.VariantClinical:
		return &ClinicalScreening{}
	case screening.VariantImage:
		return &ImageScreening{}
	default:
		return nil
	}
}

// ScreeningFromRecord builds the store model for a validated form submission.
func ScreeningFromRecord(record screening.Record, userID *uint) ScreeningRecord {
	symptoms := Symptoms{
		Age:                record.Age,
		BMI:                record.BMI,
		PulseRate:          record.PulseRate,
		RespiratoryRate:    record.RespiratoryRate,
		Hemoglobin:         record.Hemoglobin,
		MenstrualCycleType: record.CycleType,
		AverageCycleLength: record.AverageCycleLength,
		WeightGain:         record.WeightGain == 1,
		HairGrowth:         record.HairGrowth == 1,
		SkinDarkening:      record.SkinDarkening == 1,
		HairLoss:           record.HairLoss == 1,
		Pimples:            record.Pimples == 1,
		FastFood:           record.FastFood == 1,
		RegularExercise:    record.RegularExercise == 1,
		BPSystolic:         record.BPSystolic,
		BPDiastolic:        record.BPDiastolic,
	}
	base := ScreeningBase{UserID: userID}

	if record.Variant == screening.VariantClinical {
		labs := record.Labs
		return &ClinicalScreening{
			ScreeningBase: base,
			Symptoms:      symptoms,
			LabResults: LabResults{
				BetaHCG1:         labs.BetaHCG1,
				BetaHCG2:         labs.BetaHCG2,
				FSH:              labs.FSH,
				LH:               labs.LH,
				FSHLHRatio:       labs.FSHLHRatio,
				TSH:              labs.TSH,
				AMH:              labs.AMH,
				Prolactin:        labs.Prolactin,
				VitaminD3:        labs.VitaminD3,
				Progesterone:     labs.Progesterone,
				RandomBloodSugar: labs.RandomBloodSugar,
			},
		}
	}
	return &SimpleScreening{ScreeningBase: base, Symptoms: symptoms}
}

// SymptomFacts extracts the answers used by report insights.
func SymptomFacts(record ScreeningRecord) screening.SymptomFacts {
	switch r := record.(type) {
	case *SimpleScreening:
		return screening.SymptomFacts{
			IrregularCycle: r.MenstrualCycleType == screening.CycleIrregular,
			HairGrowth:     r.HairGrowth,
		}
	case *ClinicalScreening:
		return screening.SymptomFacts{
			IrregularCycle: r.MenstrualCycleType == screening.CycleIrregular,
			HairGrowth:     r.HairGrowth,
			FSHLHRatio:     r.FSHLHRatio,
		}
	default:
		return screening.SymptomFacts{}
	}
}

// ScreeningModels lists the models handled by AutoMigrate.
func ScreeningModels() []any {
	return []any{&SimpleScreening{}, &ClinicalScreening{}, &ImageScreening{}}
}
