// ABOUTME: Tests for the riskctl commands.
// ABOUTME: Runs assess over generated profile files and checks JSON, table, vendor selection and exit behaviour.

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/jfeddern/VendorRisk/internal/providers/mock"
	"github.com/jfeddern/VendorRisk/internal/types"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// brokenVendor fails validation on its access controls
var brokenVendor = types.VendorRecord{
	VendorID: "broken",
	Profile: types.VendorProfile{
		Privacy: types.PrivacyProfile{AccessControls: "excellent"},
	},
}

// writePortfolio writes the mock portfolio plus any extra records as a JSON list
func writePortfolio(t *testing.T, extra ...types.VendorRecord) string {
	t.Helper()
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)

	records, err := mock.NewMockSource(logger).ListProfiles(context.Background())
	require.NoError(t, err)
	records = append(records, extra...)

	data, err := json.Marshal(records)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "vendors.json")
	require.NoError(t, os.WriteFile(path, data, 0600))
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	root := newRootCmd(&stdout, &stderr)
	root.SetArgs(append(args, "--log-level", "error"))
	err := root.Execute()
	return stdout.String(), err
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "riskctl dev\n", out)
}

func TestAssessJSON(t *testing.T) {
	out, err := execute(t, "assess", "--file", writePortfolio(t), "--output", "json")
	require.NoError(t, err)

	var result assessResult
	require.NoError(t, json.Unmarshal([]byte(out), &result))

	assert.Equal(t, 6, result.Run.Discovered)
	assert.Equal(t, 6, result.Run.Assessed)
	assert.Equal(t, 0, result.Run.Invalid)
	assert.Nil(t, result.Cache)

	require.Len(t, result.Vendors, 6)
	assert.Equal(t, "cloudvault", result.Vendors[0].VendorID)
	assert.Equal(t, 100.0, result.Vendors[0].OverallScore)
	assert.Equal(t, types.RiskLow, result.Vendors[0].RiskLevel)
	assert.Equal(t, "shadybytes", result.Vendors[5].VendorID)
	assert.Equal(t, types.RiskCritical, result.Vendors[5].RiskLevel)
	assert.True(t, result.Vendors[5].RequiresOverride)
	assert.Empty(t, result.Details)
}

func TestAssessMinRisk(t *testing.T) {
	out, err := execute(t, "assess", "-f", writePortfolio(t), "-o", "json", "--min-risk", "high")
	require.NoError(t, err)

	var result assessResult
	require.NoError(t, json.Unmarshal([]byte(out), &result))

	ids := make([]string, 0, len(result.Vendors))
	for _, row := range result.Vendors {
		ids = append(ids, row.VendorID)
	}
	assert.Equal(t, []string{"quickship", "shadybytes"}, ids)
}

func TestAssessFindings(t *testing.T) {
	out, err := execute(t, "assess", "-f", writePortfolio(t), "-o", "json", "--min-risk", "CRITICAL RISK", "--findings")
	require.NoError(t, err)

	var result assessResult
	require.NoError(t, json.Unmarshal([]byte(out), &result))

	require.Len(t, result.Details, 1)
	shady, ok := result.Details["shadybytes"]
	require.True(t, ok)
	assert.NotEmpty(t, shady.Findings)
	assert.Len(t, shady.PolicyViolations, 3)
}

func TestAssessTable(t *testing.T) {
	out, err := execute(t, "assess", "--file", writePortfolio(t, brokenVendor), "--findings", "--min-risk", "critical")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 invalid vendor profile(s): broken")

	assert.Contains(t, out, "1 vendor profile(s) were invalid and skipped: broken")
	assert.Contains(t, out, "shadybytes")
	assert.Contains(t, out, "CRITICAL RISK")
	assert.Contains(t, out, "[GATE] gdpr_absent")
	assert.NotContains(t, out, "cloudvault")
}

func TestAssessFailOn(t *testing.T) {
	path := writePortfolio(t)

	_, err := execute(t, "assess", "--file", path, "-o", "json", "--fail-on", "critical")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 vendor(s) at CRITICAL RISK or worse")

	_, err = execute(t, "assess", "--file", path, "-o", "json", "--min-risk", "low", "--fail-on", "high")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "2 vendor(s) at HIGH RISK or worse")
}

func TestAssessInvalidProfileFails(t *testing.T) {
	out, err := execute(t, "assess", "--file", writePortfolio(t, brokenVendor), "-o", "json", "--fail-on", "critical")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 invalid vendor profile(s): broken")
	assert.Contains(t, err.Error(), "1 vendor(s) at CRITICAL RISK or worse")

	var result assessResult
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Equal(t, 7, result.Run.Discovered)
	assert.Equal(t, 6, result.Run.Assessed)
	assert.Equal(t, 1, result.Run.Invalid)
	assert.Equal(t, []string{"broken"}, result.Run.InvalidVendors)
}

func TestAssessInvalidEnumInYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vendors.yaml")
	document := `- vendor_id: typo
  profile:
    privacy:
      gdpr_compliant: true
      deletion_process: automatd
`
	require.NoError(t, os.WriteFile(path, []byte(document), 0600))

	out, err := execute(t, "assess", "--file", path, "-o", "json", "--fail-on", "critical")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 invalid vendor profile(s): typo")

	var result assessResult
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Empty(t, result.Vendors)
	assert.Equal(t, 1, result.Run.Invalid)
}

func TestAssessSelectedVendors(t *testing.T) {
	path := writePortfolio(t, brokenVendor)

	t.Run("reuses the listing for every vendor", func(t *testing.T) {
		out, err := execute(t, "assess", "-f", path, "-o", "json", "--vendor", "quickship", "--vendor", "cloudvault,quickship")
		require.NoError(t, err)

		var result assessResult
		require.NoError(t, json.Unmarshal([]byte(out), &result))

		ids := make([]string, 0, len(result.Vendors))
		for _, row := range result.Vendors {
			ids = append(ids, row.VendorID)
		}
		assert.Equal(t, []string{"cloudvault", "quickship"}, ids)
		assert.Equal(t, 2, result.Run.Assessed)

		require.NotNil(t, result.Cache)
		assert.Equal(t, uint64(1), result.Cache.Misses)
		assert.Equal(t, uint64(1), result.Cache.Hits)
	})

	t.Run("invalid selected vendor", func(t *testing.T) {
		_, err := execute(t, "assess", "-f", path, "-o", "json", "--vendor", "broken")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "1 invalid vendor profile(s): broken")
	})

	t.Run("unknown vendor", func(t *testing.T) {
		_, err := execute(t, "assess", "-f", path, "-o", "json", "--vendor", "ghost")
		require.Error(t, err)
		assert.Contains(t, err.Error(), `vendor "ghost" is not in the profile file`)
	})
}

func TestAssessFlagErrors(t *testing.T) {
	path := writePortfolio(t)

	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{name: "missing file flag", args: []string{"assess"}, wantErr: "required flag"},
		{name: "unknown output", args: []string{"assess", "-f", path, "-o", "xml"}, wantErr: "invalid --output"},
		{name: "unknown min risk", args: []string{"assess", "-f", path, "--min-risk", "severe"}, wantErr: "invalid --min-risk"},
		{name: "unknown fail on", args: []string{"assess", "-f", path, "--fail-on", "extreme"}, wantErr: "invalid --fail-on"},
		{name: "missing profile file", args: []string{"assess", "-f", filepath.Join(t.TempDir(), "none.yaml")}, wantErr: "failed to list profiles"},
		{name: "unsupported extension", args: []string{"assess", "-f", filepath.Join(t.TempDir(), "vendors.csv")}, wantErr: "failed to list profiles"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
