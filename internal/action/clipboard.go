package action

import "github.com/atotto/clipboard"

// SystemClipboard copies text to the OS clipboard. Wiring code assigns it to
// Dispatcher.ClipCopy; left unset, COPY_PATH degrades to an info Result
// carrying the path instead of failing outright.
func SystemClipboard(text string) error {
	return clipboard.WriteAll(text)
}
