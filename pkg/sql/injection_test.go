package sql

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckValue(t *testing.T) {
	clean := []any{
		"TP53",
		"ENSG00000141510",
		"Super_Enhancer_SEdbv2",
		"O'Brien",
		"",
		42,
		nil,
	}
	for _, v := range clean {
		assert.Nil(t, CheckValue("value", v), "expected %v to be clean", v)
	}

	injections := []string{
		"' OR '1'='1",
		"1 UNION SELECT * FROM users",
		"'; DROP TABLE users--",
		"admin'--",
	}
	for _, v := range injections {
		r := CheckValue("value", v)
		if r == nil {
			t.Errorf("expected injection detection for %q", v)
			continue
		}
		assert.Equal(t, "value", r.Source)
		assert.NotEmpty(t, r.Fingerprint)
	}
}

func TestCheckQuery(t *testing.T) {
	assert.Empty(t, CheckQuery("SELECT * FROM genes WHERE symbol = 'TP53'"))
	assert.Empty(t, CheckQuery("SELECT 1"))

	// The second literal unescapes to ' OR '1'='1.
	results := CheckQuery("SELECT * FROM genes WHERE symbol = 'TP53' AND note = ''' OR ''1''=''1'")
	require.Len(t, results, 1)
	assert.Equal(t, "literal[1]", results[0].Source)
	assert.NotEmpty(t, results[0].Fingerprint)
}
