package ingest

import (
	"testing"

	"eligibility/internal/models"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, fs afero.Fs, path, content string) {
	t.Helper()
	require.NoError(t, afero.WriteFile(fs, path, []byte(content), 0644))
}

func TestReader_Read(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFile(t, fs, "in/acme.txt", "MBR_ID|FNAME|LNAME|PHONE\n"+
		"A1|jane|doe|555-123-4567\n"+
		"|john|\"o|neil\"|12345\n"+
		"A3|short\n")

	batch, err := NewReader(fs).Read("in/acme.txt", '|')
	require.NoError(t, err)

	assert.Equal(t, []string{"MBR_ID", "FNAME", "LNAME", "PHONE"}, batch.Header)
	require.Len(t, batch.Rows, 3)

	assert.Equal(t, models.RawRecord{"MBR_ID": "A1", "FNAME": "jane", "LNAME": "doe", "PHONE": "555-123-4567"}, batch.Rows[0])
	assert.Equal(t, "", batch.Rows[1].Get("MBR_ID"))
	assert.Equal(t, "o|neil", batch.Rows[1].Get("LNAME"))
	assert.Equal(t, models.RawRecord{"MBR_ID": "A3", "FNAME": "short", "LNAME": "", "PHONE": ""}, batch.Rows[2])
}

func TestReader_Read_KeepsValuesAsStrings(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFile(t, fs, "in.csv", "id,zip,flag\n00042,02134,NA\n")

	batch, err := NewReader(fs).Read("in.csv", ',')
	require.NoError(t, err)
	require.Len(t, batch.Rows, 1)

	assert.Equal(t, "00042", batch.Rows[0].Get("id"))
	assert.Equal(t, "02134", batch.Rows[0].Get("zip"))
	assert.Equal(t, "NA", batch.Rows[0].Get("flag"))
}

func TestReader_Read_HeaderCleanup(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFile(t, fs, "bom.csv", "\ufeffid , name\n1,a\n")

	batch, err := NewReader(fs).Read("bom.csv", ',')
	require.NoError(t, err)

	assert.Equal(t, []string{"id", "name"}, batch.Header)
	assert.Equal(t, "1", batch.Rows[0].Get("id"))
}

func TestReader_Read_HeaderOnly(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFile(t, fs, "header.csv", "id,name\n")

	batch, err := NewReader(fs).Read("header.csv", ',')
	require.NoError(t, err)

	assert.Equal(t, []string{"id", "name"}, batch.Header)
	assert.Empty(t, batch.Rows)
}

func TestReader_Read_Errors(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFile(t, fs, "empty.csv", "")
	writeFile(t, fs, "dupe.csv", "id,id\n1,2\n")
	writeFile(t, fs, "wide.csv", "id,name\n1,a\n2,b,extra\n")

	r := NewReader(fs)

	tests := []struct {
		name string
		path string
		want error
	}{
		{"missing", "nope.csv", ErrFileNotFound},
		{"empty", "empty.csv", ErrEmptyFile},
		{"duplicate header", "dupe.csv", ErrDuplicateColumn},
		{"row too wide", "wide.csv", ErrRowTooWide},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			batch, err := r.Read(tt.path, ',')
			require.ErrorIs(t, err, tt.want)
			assert.Nil(t, batch)
		})
	}
}
