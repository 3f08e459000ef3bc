// ABOUTME: Vendor profile snapshot supplied to the risk scorer.
// ABOUTME: Defines profile fields per category and the enumerations they use.

package types

import "time"

// DeletionProcess describes how a vendor deletes customer data on request
type DeletionProcess string

const (
	DeletionNone              DeletionProcess = "none"
	DeletionManual            DeletionProcess = "manual"
	DeletionAutomatedVerified DeletionProcess = "automated_verified"
)

// AccessControls describes the strength of a vendor's access control model
type AccessControls string

const (
	AccessWeak   AccessControls = "weak"
	AccessBasic  AccessControls = "basic"
	AccessStrong AccessControls = "strong"
)

// Certification is an industry certification or attestation held by a vendor
type Certification string

const (
	CertHIPAABAA Certification = "hipaa_baa"
	CertPCIDSS   Certification = "pci_dss"
	CertFedRAMP  Certification = "fedramp"
	CertISO27701 Certification = "iso27701"
	CertISO27017 Certification = "iso27017"
	CertISO27018 Certification = "iso27018"
	CertHITRUST  Certification = "hitrust"
	CertCSASTAR  Certification = "csa_star"
)

// NotificationProcess describes how a vendor notifies customers about incidents and changes
type NotificationProcess string

const (
	NotificationReactive  NotificationProcess = "reactive"
	NotificationOnRequest NotificationProcess = "on_request"
	NotificationProactive NotificationProcess = "proactive"
)

// SupportResponse is the bucketed support response time commitment
type SupportResponse string

const (
	SupportUnderOneHour   SupportResponse = "<1h"
	SupportUnderFourHours SupportResponse = "<4h"
	SupportOther          SupportResponse = "other"
)

// DisasterRecoveryPlan describes the maturity of a vendor's DR plan
type DisasterRecoveryPlan string

const (
	DRNone           DisasterRecoveryPlan = "none"
	DRDocumented     DisasterRecoveryPlan = "documented"
	DRTestedAnnually DisasterRecoveryPlan = "tested_annually"
)

// LocalizationSupport describes how far a vendor supports data localization requirements
type LocalizationSupport string

const (
	LocalizationNone    LocalizationSupport = "none"
	LocalizationPartial LocalizationSupport = "partial"
	LocalizationFull    LocalizationSupport = "full"
)

// SecurityProfile holds the security posture inputs
type SecurityProfile struct {
	SOC2ReportDate     *time.Time `json:"soc2_report_date,omitempty" yaml:"soc2_report_date,omitempty"`
	ISO27001Certified  bool       `json:"iso27001_certified" yaml:"iso27001_certified"`
	PenTestDate        *time.Time `json:"pentest_date,omitempty" yaml:"pentest_date,omitempty"`
	BreachesLast3Years int        `json:"breaches_last_3_years" yaml:"breaches_last_3_years" validate:"min=0"`
}

// PrivacyProfile holds the privacy posture inputs
type PrivacyProfile struct {
	GDPRCompliant bool `json:"gdpr_compliant" yaml:"gdpr_compliant"`
	DPAAvailable  bool `json:"dpa_available" yaml:"dpa_available"`
	// HandlesEUPersonalData defaults to true when absent
	HandlesEUPersonalData *bool           `json:"handles_eu_personal_data,omitempty" yaml:"handles_eu_personal_data,omitempty"`
	DataHandlingMaturity  int             `json:"data_handling_maturity" yaml:"data_handling_maturity" validate:"min=0,max=3"`
	DeletionProcess       DeletionProcess `json:"deletion_process,omitempty" yaml:"deletion_process,omitempty" validate:"omitempty,oneof=none manual automated_verified"`
	AccessControls        AccessControls  `json:"access_controls,omitempty" yaml:"access_controls,omitempty" validate:"omitempty,oneof=weak basic strong"`
}

// ComplianceProfile holds the regulatory compliance inputs
type ComplianceProfile struct {
	Certifications       []Certification     `json:"certifications,omitempty" yaml:"certifications,omitempty" validate:"dive,oneof=hipaa_baa pci_dss fedramp iso27701 iso27017 iso27018 hitrust csa_star"`
	LastAuditReportDate  *time.Time          `json:"last_audit_report_date,omitempty" yaml:"last_audit_report_date,omitempty"`
	NotificationProcess  NotificationProcess `json:"notification_process,omitempty" yaml:"notification_process,omitempty" validate:"omitempty,oneof=reactive on_request proactive"`
	ViolationsLast5Years int                 `json:"violations_last_5_years" yaml:"violations_last_5_years" validate:"min=0"`
}

// ReliabilityProfile holds the availability and support inputs
type ReliabilityProfile struct {
	SLAPercentage        float64              `json:"sla_percentage" yaml:"sla_percentage" validate:"min=0,max=100"`
	ActualUptime12Months float64              `json:"actual_uptime_12_months" yaml:"actual_uptime_12_months" validate:"min=0,max=100"`
	SupportResponseTime  SupportResponse      `json:"support_response_time,omitempty" yaml:"support_response_time,omitempty" validate:"omitempty,oneof=<1h <4h other"`
	DisasterRecoveryPlan DisasterRecoveryPlan `json:"disaster_recovery_plan,omitempty" yaml:"disaster_recovery_plan,omitempty" validate:"omitempty,oneof=none documented tested_annually"`
}

// DataResidencyProfile holds the data location and transfer inputs
type DataResidencyProfile struct {
	DataCenterRegions    []string            `json:"data_center_regions,omitempty" yaml:"data_center_regions,omitempty" validate:"dive,required"`
	DataCenterSelectable bool                `json:"data_center_selectable" yaml:"data_center_selectable"`
	SubprocessorRegions  []string            `json:"subprocessor_regions,omitempty" yaml:"subprocessor_regions,omitempty" validate:"dive,required"`
	SCCAvailable         bool                `json:"scc_available" yaml:"scc_available"`
	LocalizationSupport  LocalizationSupport `json:"localization_support,omitempty" yaml:"localization_support,omitempty" validate:"omitempty,oneof=none partial full"`
}

// VendorProfile is a point-in-time snapshot of a vendor's posture.
// Absent fields are scored as risk rather than rejected.
type VendorProfile struct {
	Security      SecurityProfile      `json:"security" yaml:"security"`
	Privacy       PrivacyProfile       `json:"privacy" yaml:"privacy"`
	Compliance    ComplianceProfile    `json:"compliance" yaml:"compliance"`
	Reliability   ReliabilityProfile   `json:"reliability" yaml:"reliability"`
	DataResidency DataResidencyProfile `json:"data_residency" yaml:"data_residency"`
}

// VendorRecord pairs a vendor identifier with its current profile snapshot
type VendorRecord struct {
	VendorID string        `json:"vendor_id" yaml:"vendor_id"`
	Profile  VendorProfile `json:"profile" yaml:"profile"`
}

// EUPersonalDataInScope reports whether EU personal data is in scope for this vendor
func (p PrivacyProfile) EUPersonalDataInScope() bool {
	return p.HandlesEUPersonalData == nil || *p.HandlesEUPersonalData
}

// WithDefaults returns a copy of the profile with absent enum fields set to their documented defaults
func (p VendorProfile) WithDefaults() VendorProfile {
	if p.Privacy.DeletionProcess == "" {
		p.Privacy.DeletionProcess = DeletionNone
	}
	if p.Privacy.AccessControls == "" {
		p.Privacy.AccessControls = AccessWeak
	}
	if p.Compliance.NotificationProcess == "" {
		p.Compliance.NotificationProcess = NotificationReactive
	}
	if p.Reliability.SupportResponseTime == "" {
		p.Reliability.SupportResponseTime = SupportOther
	}
	if p.Reliability.DisasterRecoveryPlan == "" {
		p.Reliability.DisasterRecoveryPlan = DRNone
	}
	if p.DataResidency.LocalizationSupport == "" {
		p.DataResidency.LocalizationSupport = LocalizationNone
	}
	return p
}
