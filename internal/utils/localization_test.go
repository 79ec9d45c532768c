package contextutils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLocale(t *testing.T) {
	assert.Equal(t, LocaleTelugu, ParseLocale("te-IN"))
	assert.Equal(t, LocaleEnglish, ParseLocale("EN-us"))
	assert.Equal(t, LocaleEnglish, ParseLocale(""))
}

func TestLocalizedMessages_Fallbacks(t *testing.T) {
	lm := NewLocalizedMessages()
	lm.AddMessage(ErrorCodeConflict, LocaleEnglish, "Already there")

	assert.Equal(t, "Already there", lm.GetMessage(ErrorCodeConflict, LocaleTelugu))
	assert.Equal(t, "Record not found", lm.GetMessage(ErrorCodeRecordNotFound, LocaleTelugu))
	assert.Equal(t, "Already there: username", lm.GetMessageWithDetails(ErrorCodeConflict, LocaleEnglish, "username"))
}

func TestLocalizedMessages_LoadFromJSON(t *testing.T) {
	lm := NewLocalizedMessages()
	require.NoError(t, lm.LoadMessagesFromJSON(`{"TOKEN_EXPIRED": {"te": "టోకెన్ గడువు ముగిసింది"}}`))
	assert.Equal(t, "టోకెన్ గడువు ముగిసింది", lm.GetMessage(ErrorCodeTokenExpired, LocaleTelugu))

	assert.Error(t, lm.LoadMessagesFromJSON(`{broken`))
}

func TestGetErrorLocalizedMessage(t *testing.T) {
	msg := GetErrorLocalizedMessage(NewAppError(ErrorCodeInvalidCredentials, SeverityWarn, "x", ""), "te")
	assert.Equal(t, "చెల్లని ఆధారాలు", msg)
	assert.Equal(t, "An error occurred", GetErrorLocalizedMessage(assert.AnError, "en"))
}
