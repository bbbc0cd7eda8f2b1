package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/whoiskiwi/PatentSearch/pkg/errors"
)

func TestStats_Text(t *testing.T) {
	cfg, _ := writeFixture(t)
	out, _, err := execute(t, "--config", cfg, "stats")
	require.NoError(t, err)

	assert.Contains(t, out, "Total patents: 3")
	assert.Contains(t, out, "2019-06-30 .. 2021-05-01")
	assert.Contains(t, out, "B60C")
}

func TestStats_JSON(t *testing.T) {
	cfg, _ := writeFixture(t)
	out, _, err := execute(t, "--config", cfg, "-o", "json", "stats")
	require.NoError(t, err)

	var st struct {
		TotalPatents int `json:"total_patents"`
		DateRange    struct {
			Min string `json:"min"`
			Max string `json:"max"`
		} `json:"date_range"`
		ClassificationDistribution map[string]int `json:"classification_distribution"`
	}
	decodeJSON(t, out, &st)
	assert.Equal(t, 3, st.TotalPatents)
	assert.Equal(t, "2019-06-30", st.DateRange.Min)
	assert.Equal(t, "2021-05-01", st.DateRange.Max)
	assert.Equal(t, map[string]int{"B60C": 1, "F16C": 1, "B60B": 1}, st.ClassificationDistribution)
}

func TestStats_Table(t *testing.T) {
	cfg, _ := writeFixture(t)
	out, _, err := execute(t, "--config", cfg, "-o", "table", "stats")
	require.NoError(t, err)
	assert.Contains(t, out, "CLASSIFICATION")
	assert.Contains(t, out, "F16C")
}

func TestPatentGet(t *testing.T) {
	cfg, _ := writeFixture(t)

	out, _, err := execute(t, "--config", cfg, "-o", "json", "patent", "get", "1002")
	require.NoError(t, err)
	var p struct {
		DocNumber string   `json:"doc_number"`
		Claims    []string `json:"claims"`
	}
	decodeJSON(t, out, &p)
	assert.Equal(t, "US1002", p.DocNumber)
	assert.Len(t, p.Claims, 10)

	out, _, err = execute(t, "--config", cfg, "patent", "get", "US1001")
	require.NoError(t, err)
	assert.Contains(t, out, "US1001  Tire sensor")
	assert.Contains(t, out, "[1] 1. A tire comprising a pressure sensor.")
}

func TestPatentGet_NotFound(t *testing.T) {
	cfg, _ := writeFixture(t)
	_, _, err := execute(t, "--config", cfg, "patent", "get", "EP42")
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.CodePatentNotFound))
	assert.Contains(t, err.Error(), "Patent 'EP42' not found")
}
