package pipeline

import (
	"bytes"
	"context"
	"testing"
	"time"

	"eligibility/internal/config"
	"eligibility/internal/logger"
	"eligibility/pkg/metadata"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2025, time.June, 1, 12, 0, 0, 0, time.UTC)

const (
	acmeConfig = `
partner_code: ACME
file_path: input/acme.txt
delimiter: "|"
column_mapping:
  MBR_ID: external_id
  FNAME: first_name
  LNAME: last_name
  DOB: dob
  EMAIL: email
  PHONE: phone
`
	acmeInput = "MBR_ID|FNAME|LNAME|DOB|EMAIL|PHONE|PLAN\n" +
		"|jane|doe|02/30/2020|Jane@X.com|555-123-4567|gold\n" +
		"A1|john|smith|1990-05-10|JOHN@x.com|12345|silver\n" +
		"A2|mary ann|lee|May 10, 1990|m@x.com|1 (555) 987-6543|gold\n"

	betaConfig = `
partner_code: BETA
file_path: input/beta.csv
delimiter: ","
column_mapping:
  first: first_name
  last: last_name
  birth: dob
  mail: email
  tel: phone
`
	betaInput = "first,last,birth,mail,tel\nann,lee,1985-01-02,a@b.c,5551234567\n"

	deltaConfig = `
partner_code: DELTA
file_path: input/delta.csv
delimiter: ","
column_mapping:
  id: external_id
  first: first_name
`
	deltaInput = "id,first\n1,a\n"

	gammaConfig = `
partner_code: GAMMA
file_path: input/missing.csv
delimiter: ","
column_mapping:
  id: external_id
`
	zetaConfig = "partner_code: ZETA\ndelimiter: ';;'\n"
)

func testConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.Pipeline.PartnersDir = "partners"
	cfg.Pipeline.InputRoot = "data"
	cfg.Pipeline.Output.ProcessedDir = "out/processed"
	cfg.Pipeline.Output.ErrorDir = "out/errors"

	return cfg
}

func writeFiles(t *testing.T, fs afero.Fs, files map[string]string) {
	t.Helper()

	for path, content := range files {
		require.NoError(t, afero.WriteFile(fs, path, []byte(content), 0644))
	}
}

func readFile(t *testing.T, fs afero.Fs, path string) string {
	t.Helper()

	data, err := afero.ReadFile(fs, path)
	require.NoError(t, err)

	return string(data)
}

func newTestPipeline(fs afero.Fs, cfg *config.Config) *Pipeline {
	return New(cfg, fs, logger.Discard(),
		WithClock(func() time.Time { return testNow }),
		WithRunID("run-test"),
	)
}

func loadPartners(t *testing.T, fs afero.Fs) *config.PartnerSet {
	t.Helper()

	set, err := config.LoadPartners(fs, "partners")
	require.NoError(t, err)

	return set
}

func TestPipeline_Run(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFiles(t, fs, map[string]string{
		"partners/acme.yaml":   acmeConfig,
		"partners/beta.yaml":   betaConfig,
		"partners/delta.yaml":  deltaConfig,
		"partners/gamma.yaml":  gammaConfig,
		"partners/zeta.yaml":   zetaConfig,
		"data/input/acme.txt":  acmeInput,
		"data/input/beta.csv":  betaInput,
		"data/input/delta.csv": deltaInput,
	})

	cfg := testConfig()
	p := newTestPipeline(fs, cfg)

	report, err := p.Run(context.Background(), loadPartners(t, fs))
	require.NoError(t, err)

	assert.Equal(t, "run-test", report.RunID)
	require.Len(t, report.Partners, 5)
	assert.Equal(t, 2, report.Succeeded())
	assert.Equal(t, 3, report.Failed())

	byCode := make(map[string]PartnerReport)
	for _, pr := range report.Partners {
		byCode[pr.PartnerCode] = pr
	}

	acme := byCode["ACME"]
	require.NoError(t, acme.Err)
	assert.Equal(t, 3, acme.Received)
	assert.Equal(t, 2, acme.Processed)
	assert.Equal(t, 2, acme.Errors)
	assert.Equal(t, 1, acme.HardErrors)
	assert.Equal(t, 1, acme.SoftErrors)

	assert.Equal(t,
		"external_id,first_name,last_name,dob,email,phone,partner_code\n"+
			"A1,John,Smith,1990-05-10,john@x.com,12345*(Invalid Phone Number),ACME\n"+
			"A2,Mary Ann,Lee,1990-05-10,m@x.com,555-987-6543,ACME\n",
		readFile(t, fs, "out/processed/acme_processed.csv"))

	assert.Equal(t,
		"external_id,first_name,last_name,dob,email,phone,partner_code,error_reason\n"+
			",Jane,Doe,02/30/2020*(Invalid DOB),jane@x.com,555-123-4567,ACME,Missing External ID | Invalid DOB\n"+
			"A1,John,Smith,1990-05-10,john@x.com,12345*(Invalid Phone Number),ACME,Invalid Phone Number\n",
		readFile(t, fs, "out/errors/acme_errors.csv"))

	beta := byCode["BETA"]
	require.NoError(t, beta.Err)
	assert.Equal(t, 1, beta.Received)
	assert.Equal(t, 0, beta.Processed)
	assert.Equal(t, 1, beta.HardErrors)
	assert.Equal(t,
		"external_id,first_name,last_name,dob,email,phone,partner_code\n",
		readFile(t, fs, "out/processed/beta_processed.csv"))
	assert.Contains(t, readFile(t, fs, "out/errors/beta_errors.csv"), ",Ann,Lee,1985-01-02,a@b.c,555-123-4567,BETA,MISSING_EXTERNAL_ID\n")

	assert.ErrorContains(t, byCode["DELTA"].Err, "required column missing")
	assert.ErrorContains(t, byCode["GAMMA"].Err, "input file not found")
	assert.ErrorContains(t, byCode["ZETA"].Err, "invalid partner configuration")

	require.NotNil(t, report.Unified)
	assert.Equal(t, 2, report.Unified.Rows)
	assert.Equal(t,
		"external_id,first_name,last_name,dob,email,phone,partner_code\n"+
			"A1,John,Smith,1990-05-10,john@x.com,12345*(Invalid Phone Number),ACME\n"+
			"A2,Mary Ann,Lee,1990-05-10,m@x.com,555-987-6543,ACME\n",
		readFile(t, fs, "out/processed/unified_eligibility.csv"))

	manifest, err := metadata.Load(fs, cfg.ManifestPath())
	require.NoError(t, err)
	assert.Equal(t, "run-test", manifest.RunID)
	assert.Len(t, manifest.Partners, 5)
	assert.Len(t, manifest.Files, 5)
	assert.Empty(t, manifest.VerifyAll(fs))

	m := p.Metrics()
	assert.InDelta(t, 3, testutil.ToFloat64(m.RecordsReceived.WithLabelValues("ACME")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.FieldInvalid.WithLabelValues("ACME", "phone")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.FieldInvalid.WithLabelValues("ACME", "dob")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.PartnerFailures.WithLabelValues("GAMMA")), 0)
}

func TestPipeline_Run_WriteSummary(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFiles(t, fs, map[string]string{
		"partners/acme.yaml":  acmeConfig,
		"partners/gamma.yaml": gammaConfig,
		"data/input/acme.txt": acmeInput,
	})

	report, err := newTestPipeline(fs, testConfig()).Run(context.Background(), loadPartners(t, fs))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, report.WriteSummary(&buf))

	out := buf.String()
	assert.Contains(t, out, "Processing file: input/acme.txt\n")
	assert.Contains(t, out, "Total records received: 3\n")
	assert.Contains(t, out, "Successfully processed records: 2\n")
	assert.Contains(t, out, "Records sent to error file: 2\n")
	assert.Contains(t, out, "ERROR processing GAMMA: ingestion: input file not found")
	assert.Contains(t, out, "Run run-test: 1 partner(s) succeeded, 1 failed")
	assert.Contains(t, out, "| Partner | Received | Processed | Errors | Hard | Soft |")
	assert.Contains(t, out, "| ACME    | 3        | 2         | 2      | 1    | 1    | ok")
	assert.Contains(t, out, "| UNIFIED |")
}

func TestPipeline_Run_RemovesStaleErrorFile(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFiles(t, fs, map[string]string{
		"partners/acme.yaml":         acmeConfig,
		"data/input/acme.txt":        "MBR_ID|FNAME|LNAME|DOB|EMAIL|PHONE\nA1|a|b|1990-01-01|x@y.z|5551234567\n",
		"out/errors/acme_errors.csv": "stale",
	})

	report, err := newTestPipeline(fs, testConfig()).Run(context.Background(), loadPartners(t, fs))
	require.NoError(t, err)
	assert.Equal(t, 0, report.Partners[0].Errors)

	exists, err := afero.Exists(fs, "out/errors/acme_errors.csv")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestPipeline_Run_DisabledPartnerSkipped(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFiles(t, fs, map[string]string{
		"partners/acme.yaml":  acmeConfig,
		"partners/beta.yaml":  betaConfig + "enabled: false\n",
		"data/input/acme.txt": acmeInput,
	})

	report, err := newTestPipeline(fs, testConfig()).Run(context.Background(), loadPartners(t, fs))
	require.NoError(t, err)

	require.Len(t, report.Partners, 1)
	assert.Equal(t, "ACME", report.Partners[0].PartnerCode)

	exists, err := afero.Exists(fs, "out/processed/beta_processed.csv")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestPipeline_Run_AllPartnersFail(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFiles(t, fs, map[string]string{
		"partners/gamma.yaml": gammaConfig,
	})

	cfg := testConfig()

	report, err := newTestPipeline(fs, cfg).Run(context.Background(), loadPartners(t, fs))
	require.ErrorIs(t, err, ErrNoPartnersSucceeded)
	assert.Nil(t, report.Unified)

	exists, err := afero.Exists(fs, cfg.UnifiedPath())
	require.NoError(t, err)
	assert.False(t, exists)

	exists, err = afero.Exists(fs, cfg.ManifestPath())
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestPipeline_Run_Cancelled(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFiles(t, fs, map[string]string{
		"partners/acme.yaml":  acmeConfig,
		"data/input/acme.txt": acmeInput,
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := newTestPipeline(fs, testConfig()).Run(ctx, loadPartners(t, fs))
	require.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, report.Partners)
}

func TestPipeline_Run_MetricsTextfileUsesFs(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFiles(t, fs, map[string]string{
		"partners/acme.yaml":  acmeConfig,
		"data/input/acme.txt": acmeInput,
	})

	cfg := testConfig()
	cfg.Pipeline.Metrics.Textfile = "out/metrics/eligibility.prom"

	_, err := newTestPipeline(fs, cfg).Run(context.Background(), loadPartners(t, fs))
	require.NoError(t, err)

	assert.Contains(t, readFile(t, fs, "out/metrics/eligibility.prom"), `eligibility_records_received_total{partner="ACME"} 3`)
}
