// ABOUTME: Mock profile source for local testing and development.
// ABOUTME: Provides a realistic vendor portfolio spanning every risk level without external access.

package mock

import (
	"context"
	"time"

	"github.com/jfeddern/VendorRisk/internal/types"
	"github.com/sirupsen/logrus"
)

// MockSource implements ProfileSource with a fixed vendor portfolio
type MockSource struct {
	now    func() time.Time
	logger *logrus.Logger
}

// NewMockSource creates a new mock profile source
func NewMockSource(logger *logrus.Logger) *MockSource {
	return &MockSource{
		now:    time.Now,
		logger: logger,
	}
}

// Name returns the name of this profile source
func (m *MockSource) Name() string {
	return "mock"
}

// ListProfiles returns mock vendor profiles with dates relative to the current time
func (m *MockSource) ListProfiles(ctx context.Context) ([]types.VendorRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.logger.Info("Listing mock vendor profiles")

	now := m.now().UTC()
	ago := func(months int) *time.Time {
		t := now.AddDate(0, -months, 0)
		return &t
	}
	yes, no := true, false

	records := []types.VendorRecord{
		{
			// Best-in-class hosting provider
			VendorID: "cloudvault",
			Profile: types.VendorProfile{
				Security: types.SecurityProfile{
					SOC2ReportDate:    ago(3),
					ISO27001Certified: true,
					PenTestDate:       ago(2),
				},
				Privacy: types.PrivacyProfile{
					GDPRCompliant:         true,
					DPAAvailable:          true,
					HandlesEUPersonalData: &yes,
					DataHandlingMaturity:  3,
					DeletionProcess:       types.DeletionAutomatedVerified,
					AccessControls:        types.AccessStrong,
				},
				Compliance: types.ComplianceProfile{
					Certifications:      []types.Certification{types.CertHIPAABAA, types.CertPCIDSS, types.CertISO27701},
					LastAuditReportDate: ago(2),
					NotificationProcess: types.NotificationProactive,
				},
				Reliability: types.ReliabilityProfile{
					SLAPercentage:        99.99,
					ActualUptime12Months: 99.995,
					SupportResponseTime:  types.SupportUnderOneHour,
					DisasterRecoveryPlan: types.DRTestedAnnually,
				},
				DataResidency: types.DataResidencyProfile{
					DataCenterRegions:    []string{"eu-central-1", "eu-west-1", "us-east-1", "ap-southeast-2"},
					DataCenterSelectable: true,
					SubprocessorRegions:  []string{"eu", "us"},
					SCCAvailable:         true,
					LocalizationSupport:  types.LocalizationFull,
				},
			},
		},
		{
			// Solid analytics vendor with an aging audit trail
			VendorID: "datastream",
			Profile: types.VendorProfile{
				Security: types.SecurityProfile{
					SOC2ReportDate:    ago(15),
					ISO27001Certified: true,
					PenTestDate:       ago(8),
				},
				Privacy: types.PrivacyProfile{
					GDPRCompliant:        true,
					DPAAvailable:         true,
					DataHandlingMaturity: 2,
					DeletionProcess:      types.DeletionManual,
					AccessControls:       types.AccessBasic,
				},
				Compliance: types.ComplianceProfile{
					Certifications:      []types.Certification{types.CertISO27017, types.CertISO27018},
					LastAuditReportDate: ago(9),
					NotificationProcess: types.NotificationOnRequest,
				},
				Reliability: types.ReliabilityProfile{
					SLAPercentage:        99.9,
					ActualUptime12Months: 99.85,
					SupportResponseTime:  types.SupportUnderFourHours,
					DisasterRecoveryPlan: types.DRDocumented,
				},
				DataResidency: types.DataResidencyProfile{
					DataCenterRegions:   []string{"eu-west-1", "us-east-1"},
					SubprocessorRegions: []string{"eu", "us"},
					SCCAvailable:        true,
					LocalizationSupport: types.LocalizationPartial,
				},
			},
		},
		{
			// Strong posture undermined by repeated breaches
			VendorID: "nordicmail",
			Profile: types.VendorProfile{
				Security: types.SecurityProfile{
					SOC2ReportDate:     ago(4),
					ISO27001Certified:  true,
					PenTestDate:        ago(5),
					BreachesLast3Years: 2,
				},
				Privacy: types.PrivacyProfile{
					GDPRCompliant:        true,
					DPAAvailable:         true,
					DataHandlingMaturity: 3,
					DeletionProcess:      types.DeletionAutomatedVerified,
					AccessControls:       types.AccessStrong,
				},
				Compliance: types.ComplianceProfile{
					Certifications:      []types.Certification{types.CertISO27701, types.CertHITRUST, types.CertPCIDSS, types.CertCSASTAR},
					LastAuditReportDate: ago(1),
					NotificationProcess: types.NotificationProactive,
				},
				Reliability: types.ReliabilityProfile{
					SLAPercentage:        99.95,
					ActualUptime12Months: 99.97,
					SupportResponseTime:  types.SupportUnderOneHour,
					DisasterRecoveryPlan: types.DRTestedAnnually,
				},
				DataResidency: types.DataResidencyProfile{
					DataCenterRegions:    []string{"eu-north-1", "eu-central-1", "eu-west-3"},
					DataCenterSelectable: true,
					SubprocessorRegions:  []string{"sweden", "germany"},
					SCCAvailable:         true,
					LocalizationSupport:  types.LocalizationFull,
				},
			},
		},
		{
			// Young logistics startup with gaps across the board
			VendorID: "quickship",
			Profile: types.VendorProfile{
				Security: types.SecurityProfile{
					SOC2ReportDate:     ago(10),
					PenTestDate:        ago(10),
					BreachesLast3Years: 1,
				},
				Privacy: types.PrivacyProfile{
					GDPRCompliant:        true,
					DataHandlingMaturity: 2,
					DeletionProcess:      types.DeletionManual,
					AccessControls:       types.AccessBasic,
				},
				Compliance: types.ComplianceProfile{
					Certifications:      []types.Certification{types.CertPCIDSS},
					LastAuditReportDate: ago(10),
					NotificationProcess: types.NotificationOnRequest,
				},
				Reliability: types.ReliabilityProfile{
					SLAPercentage:        99.5,
					ActualUptime12Months: 99.6,
					SupportResponseTime:  types.SupportUnderFourHours,
					DisasterRecoveryPlan: types.DRDocumented,
				},
				DataResidency: types.DataResidencyProfile{
					DataCenterRegions:   []string{"us-east-1", "us-west-2"},
					SubprocessorRegions: []string{"us"},
					SCCAvailable:        true,
					LocalizationSupport: types.LocalizationNone,
				},
			},
		},
		{
			// Offshore data broker that fails every control
			VendorID: "shadybytes",
			Profile: types.VendorProfile{
				Security: types.SecurityProfile{
					BreachesLast3Years: 3,
				},
				Privacy: types.PrivacyProfile{
					HandlesEUPersonalData: &yes,
				},
				Compliance: types.ComplianceProfile{
					ViolationsLast5Years: 2,
				},
				Reliability: types.ReliabilityProfile{
					SLAPercentage:        99.0,
					ActualUptime12Months: 98.0,
				},
			},
		},
		{
			// US-only payroll tool that never touches EU personal data
			VendorID: "stateside-payroll",
			Profile: types.VendorProfile{
				Security: types.SecurityProfile{
					SOC2ReportDate:    ago(6),
					ISO27001Certified: true,
					PenTestDate:       ago(6),
				},
				Privacy: types.PrivacyProfile{
					HandlesEUPersonalData: &no,
					DataHandlingMaturity:  2,
					DeletionProcess:       types.DeletionAutomatedVerified,
					AccessControls:        types.AccessStrong,
				},
				Compliance: types.ComplianceProfile{
					Certifications:      []types.Certification{types.CertHIPAABAA, types.CertFedRAMP},
					LastAuditReportDate: ago(5),
					NotificationProcess: types.NotificationProactive,
				},
				Reliability: types.ReliabilityProfile{
					SLAPercentage:        99.9,
					ActualUptime12Months: 99.92,
					SupportResponseTime:  types.SupportUnderFourHours,
					DisasterRecoveryPlan: types.DRTestedAnnually,
				},
				DataResidency: types.DataResidencyProfile{
					DataCenterRegions:   []string{"us-east-1", "us-west-2"},
					SubprocessorRegions: []string{"us"},
					SCCAvailable:        false,
					LocalizationSupport: types.LocalizationPartial,
				},
			},
		},
	}

	m.logger.WithField("vendor_count", len(records)).Info("Mock profile listing completed")
	return records, nil
}
