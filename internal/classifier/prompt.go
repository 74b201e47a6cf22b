package classifier

import (
	"fmt"
	"strings"
)

// MaxBodyRunes bounds the email body embedded in the prompt.
const MaxBodyRunes = 1000

const urlSeparator = "   ,   "

const promptTemplate = `
Prompt:

You are given the content of an email. Classify whether the email is a press release. A press release is a formal announcement about company news, product launches, partnerships, or significant events, and is intended for public or media distribution. Do not classify stock updates, investor alerts, promotional emails, or subscription notices as press releases.

Return only a raw JSON object in the following format (on a single line):

{
"press_release": "YES" or "NO",
"type": "inline" (if the press release content is in the email body), "url" (if it's in a linked page), or null,
"url": a string (if type is "url"), otherwise null,
"text": the main body of the press release as a string (if type is "inline"), otherwise null,
"timestamp": the release date in YYYY-MM-DD format (if type is "inline"), otherwise null
}

Rules:
1. Preserve URLs exactly as received
2. Never modify URL casing/parameters
3. Return raw JSON without markdown
4. For 'inline' type, extract the release date or timestamp from the email body and set 'timestamp'. If the date cannot be determined, set 'timestamp' to null.

Examples:

{"press_release": "YES", "type": "inline", "url": null, "text": "New York, NY - May 20, 2025 - Company XYZ announces...", "timestamp": "2025-05-20"}
{"press_release": "YES", "type": "url", "url": "https://xyz.com/press-release", "text": null, "timestamp": null}
{"press_release": "NO", "type": null, "url": null, "text": null, "timestamp": null}

Input:

SUBJECT: %s
BODY: %s
URLS: %s

Only return a single-line raw JSON response. Do not include code blocks or markdown.
`

// BuildPrompt renders the classification prompt. Only the first
// MaxBodyRunes of body are included.
func BuildPrompt(subject, body string, urls []string) string {
	urlList := "None"
	if len(urls) > 0 {
		urlList = strings.Join(urls, urlSeparator)
	}
	return fmt.Sprintf(promptTemplate, subject, truncateRunes(body, MaxBodyRunes), urlList)
}

func truncateRunes(s string, limit int) string {
	n := 0
	for i := range s {
		if n == limit {
			return s[:i]
		}
		n++
	}
	return s
}
