package models

// Markup selects the keyboard attached to an outgoing message.
type Markup int

const (
	MarkupNone Markup = iota
	MarkupLanguageMenu
	MarkupInputChoice
	MarkupDonation
	MarkupRemoveKeyboard
)

// Callback payloads carried by inline buttons.
const (
	CallbackLanguagePrefix = "lang_"
	CallbackDonateContinue = "donate_continue"
)

// OutgoingMessage is a transport-neutral message. Text is HTML.
type OutgoingMessage struct {
	ChatID  int64
	Text    string
	ReplyTo int
	Markup  Markup
	// Language picks the button labels for keyboards.
	Language string
	// DonateURL is the link behind the donate button of MarkupDonation.
	DonateURL string
}
