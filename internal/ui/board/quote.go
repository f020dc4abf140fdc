package board

import "time"

// Quote is a line shown under the day's stats.
type Quote struct {
	Text   string
	Author string
}

var quotes = []Quote{
	{"Make each day your masterpiece.", "John Wooden"},
	{"The only way to do great work is to love what you do.", "Steve Jobs"},
	{"Success is not final, failure is not fatal: it is the courage to continue that counts.", "Winston Churchill"},
	{"The future depends on what you do today.", "Mahatma Gandhi"},
	{"Start where you are. Use what you have. Do what you can.", "Arthur Ashe"},
	{"Don't count the days, make the days count.", "Muhammad Ali"},
	{"Every moment is a fresh beginning.", "T.S. Eliot"},
	{"Believe you can and you're halfway there.", "Theodore Roosevelt"},
}

// quoteRotation is how long one quote stays up.
const quoteRotation = 6

// QuoteAt picks the quote for t. It changes every six hours of local
// time and is stable within a window.
func QuoteAt(t time.Time) Quote {
	window := t.YearDay()*(24/quoteRotation) + t.Hour()/quoteRotation
	return quotes[window%len(quotes)]
}
