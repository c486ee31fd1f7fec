// Package color holds the terminal palette used to print results.
//
// Colors adapt to light and dark terminals. Initialize selects the variant
// explicitly; otherwise lipgloss detects the background. Setting NO_COLOR,
// or calling Disable, prints plain text.
//
// Example:
//
//	color.Initialize(true)
//	fmt.Println(color.Outcome(api.OutcomeFailure).Render("FAILURE"))
package color
