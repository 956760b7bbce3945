package expression

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func userNamespace(pairs ...string) *Namespace {
	ns := SystemNamespace()
	for i := 0; i+1 < len(pairs); i += 2 {
		ns.Add(pairs[i], pairs[i+1])
	}
	return ns
}

func TestTranslate_WholeWordOnly(t *testing.T) {
	// Renaming A must not corrupt AB.
	ns := userNamespace("A", "S0", "AB", "S1")
	tr := NewTranslator(ns, nil)

	got, err := tr.Translate("A + AB")
	require.NoError(t, err)
	assert.Equal(t, "S0 + S1", got)
}

func TestTranslate_IdentifierInsideCall(t *testing.T) {
	ns := userNamespace("k1", "P0", "X", "S0")
	tr := NewTranslator(ns, nil)

	got, err := tr.Translate("k1*exp(-X/10.5)")
	require.NoError(t, err)
	assert.Equal(t, "P0*exp(-S0/10.5)", got)
}

func TestTranslate_UnknownIdentifier(t *testing.T) {
	tr := NewTranslator(userNamespace("X", "S0"), nil)

	_, err := tr.Translate("X + Y")
	require.Error(t, err)

	var terr *TranslationError
	require.True(t, errors.As(err, &terr))
	assert.Contains(t, terr.Detail, "Y")
}

func TestTranslate_BlacklistedAssignment(t *testing.T) {
	tr := NewTranslator(userNamespace("X", "S0"), nil)

	_, err := tr.Translate("X = 5")
	require.Error(t, err)

	// Comparison operators are not assignment and must pass.
	got, err := tr.Translate("X >= 5")
	require.NoError(t, err)
	assert.Equal(t, "S0 >= 5", got)
}

func TestTranslate_PythonExponentRejected(t *testing.T) {
	tr := NewTranslator(userNamespace("X", "S0"), nil)

	_, err := tr.Translate("X**2")
	require.Error(t, err)
}

func TestNamespace_SystemNamesWinOverUser(t *testing.T) {
	// A user parameter named "exp" must not shadow the math function.
	ns := SystemNamespace()
	ns.Add("exp", "P3")

	to, ok := ns.Resolve("exp")
	require.True(t, ok)
	assert.Equal(t, "exp", to)
}

func TestTranslate_VolumeAndTime(t *testing.T) {
	tr := NewTranslator(userNamespace("X", "S0"), nil)

	got, err := tr.Translate("X/vol + t")
	require.NoError(t, err)
	assert.Equal(t, "S0/V + t", got)
}

func TestTranslate_ScientificNotationUntouched(t *testing.T) {
	tr := NewTranslator(userNamespace(), nil)

	got, err := tr.Translate("1.5e-3 * 2E+4")
	require.NoError(t, err)
	assert.Equal(t, "1.5e-3 * 2E+4", got)
}
