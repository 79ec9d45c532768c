package contextutils

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Locale represents a language locale (e.g., "en", "te")
type Locale string

const (
	// LocaleEnglish represents English language
	LocaleEnglish Locale = "en"
	// LocaleTelugu represents Telugu language
	LocaleTelugu Locale = "te"
)

// LocalizedMessages contains localized error messages for different locales
type LocalizedMessages struct {
	messages map[ErrorCode]map[Locale]string
}

// NewLocalizedMessages creates a new instance of localized messages
func NewLocalizedMessages() *LocalizedMessages {
	return &LocalizedMessages{
		messages: make(map[ErrorCode]map[Locale]string),
	}
}

// AddMessage adds a localized message for a specific error code and locale
func (lm *LocalizedMessages) AddMessage(code ErrorCode, locale Locale, message string) {
	if lm.messages[code] == nil {
		lm.messages[code] = make(map[Locale]string)
	}
	lm.messages[code][locale] = message
}

// GetMessage returns the localized message for an error code and locale
func (lm *LocalizedMessages) GetMessage(code ErrorCode, locale Locale) string {
	if localeMessages, exists := lm.messages[code]; exists {
		if message, exists := localeMessages[locale]; exists {
			return message
		}
		if message, exists := localeMessages[LocaleEnglish]; exists {
			return message
		}
	}

	return getDefaultMessage(code)
}

// translation returns the message registered for exactly this locale
func (lm *LocalizedMessages) translation(code ErrorCode, locale Locale) (string, bool) {
	msg, ok := lm.messages[code][locale]
	return msg, ok
}

// GetMessageWithDetails returns a localized message with additional details
func (lm *LocalizedMessages) GetMessageWithDetails(code ErrorCode, locale Locale, details string) string {
	message := lm.GetMessage(code, locale)
	if details != "" {
		return fmt.Sprintf("%s: %s", message, details)
	}
	return message
}

// getDefaultMessage returns a default English message for error codes
func getDefaultMessage(code ErrorCode) string {
	switch code {
	case ErrorCodeDatabaseConnection, ErrorCodeDatabaseQuery, ErrorCodeDatabaseTransaction, ErrorCodeInternalError:
		return "Internal server error"
	case ErrorCodeRecordNotFound:
		return "Record not found"
	case ErrorCodeRecordExists:
		return "Record already exists"
	case ErrorCodeInvalidInput:
		return "Invalid input"
	case ErrorCodeMissingRequired:
		return "Missing required field"
	case ErrorCodeValidationFailed:
		return "Validation failed"
	case ErrorCodeWeakPassword:
		return "Password does not meet requirements"
	case ErrorCodeUnauthorized:
		return "Unauthorized access"
	case ErrorCodeForbidden:
		return "Access forbidden"
	case ErrorCodeInvalidCredentials:
		return "Invalid credentials"
	case ErrorCodeTokenExpired:
		return "Token expired"
	case ErrorCodeTokenInvalid:
		return "Invalid token"
	case ErrorCodeAccountInactive:
		return "Account is deactivated"
	case ErrorCodePrerequisiteNotMet:
		return "Chapter prerequisite not met"
	case ErrorCodeSessionClosed:
		return "Learning session already ended"
	case ErrorCodeChallengeCompleted:
		return "Daily challenge already completed"
	case ErrorCodeConflict:
		return "Operation conflicts with current state"
	case ErrorCodeServiceUnavailable:
		return "Service temporarily unavailable"
	case ErrorCodeTimeout:
		return "Request timeout"
	case ErrorCodeRateLimit:
		return "Rate limit exceeded"
	case ErrorCodeAIProviderUnavailable:
		return "AI service unavailable"
	case ErrorCodeAIRequestFailed:
		return "AI request failed"
	case ErrorCodeAIResponseInvalid:
		return "AI response invalid"
	default:
		return "An error occurred"
	}
}

// LoadMessagesFromJSON loads localized messages from a JSON structure
func (lm *LocalizedMessages) LoadMessagesFromJSON(jsonData string) error {
	var data map[string]map[string]string
	if err := json.Unmarshal([]byte(jsonData), &data); err != nil {
		return WrapError(err, "failed to parse localization JSON")
	}

	for codeStr, localeMessages := range data {
		for localeStr, message := range localeMessages {
			lm.AddMessage(ErrorCode(codeStr), Locale(localeStr), message)
		}
	}

	return nil
}

// ParseLocale parses a locale string (e.g., "en-US", "te-IN") and returns the language part
func ParseLocale(localeStr string) Locale {
	parts := strings.Split(localeStr, "-")
	if len(parts) > 0 && parts[0] != "" {
		return Locale(strings.ToLower(parts[0]))
	}
	return LocaleEnglish
}

var globalLocalizedMessages = NewLocalizedMessages()

func init() {
	globalLocalizedMessages.AddMessage(ErrorCodeInvalidInput, LocaleTelugu, "చెల్లని ఇన్‌పుట్")
	globalLocalizedMessages.AddMessage(ErrorCodeRecordNotFound, LocaleTelugu, "రికార్డు కనుగొనబడలేదు")
	globalLocalizedMessages.AddMessage(ErrorCodeUnauthorized, LocaleTelugu, "అనధికార ప్రవేశం")
	globalLocalizedMessages.AddMessage(ErrorCodeInvalidCredentials, LocaleTelugu, "చెల్లని ఆధారాలు")
	globalLocalizedMessages.AddMessage(ErrorCodePrerequisiteNotMet, LocaleTelugu, "ముందస్తు అధ్యాయం పూర్తి కాలేదు")
	globalLocalizedMessages.AddMessage(ErrorCodeInternalError, LocaleTelugu, "అంతర్గత సర్వర్ లోపం")
}

// GetLocalizedMessage returns a localized error message using the global instance
func GetLocalizedMessage(code ErrorCode, locale Locale) string {
	return globalLocalizedMessages.GetMessage(code, locale)
}

// GetLocalizedMessageWithDetails returns a localized error message with details
func GetLocalizedMessageWithDetails(code ErrorCode, locale Locale, details string) string {
	return globalLocalizedMessages.GetMessageWithDetails(code, locale, details)
}
