// Package ui renders the terminal output of the scraper: banner, colored
// status lines and the end-of-run summary.
package ui

import (
	"fmt"
	"io"
	"os"
	"sync"
)

// ASCIILogo is printed at startup
const ASCIILogo = `
 ┌─────────────────────────────────────────────┐
 │  ╔╗╔╦╔╦╗╔╦╗╔═╗╦═╗  ╔═╗╔═╗╦═╗╔═╗╔═╗╔═╗╦═╗  │
 │  ║║║║ ║  ║ ║╣ ╠╦╝  ╚═╗║  ╠╦╝╠═╣╠═╝║╣ ╠╦╝  │
 │  ╝╚╝╩ ╩  ╩ ╚═╝╩╚═  ╚═╝╚═╝╩╚═╩ ╩╩  ╚═╝╩╚═  │
 │      multi-mirror timeline collector        │
 └─────────────────────────────────────────────┘
`

var (
	mu    sync.Mutex
	out   io.Writer = os.Stdout
	quiet bool
)

// SetOutput redirects all ui output to w; nil restores stdout
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	if w == nil {
		w = os.Stdout
	}
	out = w
}

// SetQuiet suppresses everything except errors
func SetQuiet(q bool) {
	mu.Lock()
	defer mu.Unlock()
	quiet = q
}

func write(force bool, s string) {
	mu.Lock()
	defer mu.Unlock()
	if quiet && !force {
		return
	}
	fmt.Fprintln(out, s)
}

func withArg(msg string, args []interface{}) string {
	if len(args) > 0 {
		return msg + ": " + fmt.Sprintf("%v", args[0])
	}
	return msg
}

// PrintLogo prints the ASCII logo
func PrintLogo() {
	write(false, logoStyle.Render(ASCIILogo))
}

// PrintError prints an error message. Errors are shown in quiet mode too.
func PrintError(msg string, args ...interface{}) {
	write(true, errorStyle.Render(withArg(msg, args)))
}

// PrintSuccess prints a success message
func PrintSuccess(msg string) {
	write(false, successStyle.Render(msg))
}

// PrintInfo prints a label and value
func PrintInfo(label string, value string) {
	write(false, labelStyle.Render(label)+": "+valueStyle.Render(value))
}

// PrintWarning prints a warning message
func PrintWarning(msg string, args ...interface{}) {
	write(false, warningStyle.Render(withArg(msg, args)))
}

// PrintHighlight prints a highlighted message
func PrintHighlight(msg string) {
	write(false, highlightStyle.Render(msg))
}
