// Package types holds small value types shared across the STT, LLM, TTS,
// and orchestrator packages, kept separate so none of those packages need
// to import one another just to agree on a voice or language code.
package types

// Voice selects a TTS speaker identity.
type Voice string

const (
	VoiceF1 Voice = "F1"
	VoiceF2 Voice = "F2"
	VoiceF3 Voice = "F3"
	VoiceF4 Voice = "F4"
	VoiceF5 Voice = "F5"
	VoiceM1 Voice = "M1"
	VoiceM2 Voice = "M2"
	VoiceM3 Voice = "M3"
	VoiceM4 Voice = "M4"
	VoiceM5 Voice = "M5"
)

// Language is an ISO-ish language tag understood by the STT/LLM/TTS
// collaborators.
type Language string

const (
	LanguageEn Language = "en"
	LanguageEs Language = "es"
	LanguageFr Language = "fr"
	LanguageDe Language = "de"
	LanguageIt Language = "it"
	LanguagePt Language = "pt"
	LanguageJa Language = "ja"
	LanguageZh Language = "zh"
)

// Role is the speaker tag of a conversation message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one turn of conversation history, shared verbatim between the
// LLM worker's context and the LLM provider clients.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}
