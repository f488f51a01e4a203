package mail

import "strings"

var angleStripper = strings.NewReplacer("<", "", ">", "")

// sender is the address and display name derived from Request.From.
type sender struct {
	email string
	name  string
}

// resolveSender splits from ("Name <addr>") into its address and display name.
//
// When from is empty the defaults are split the same way. A value without
// angle brackets is used whole for both the address and the name.
func resolveSender(from string, s Settings) sender {
	email := from
	if email == "" {
		email = s.DefaultFrom
	}

	name := from
	if name == "" {
		name = s.DefaultFromName
	}

	return sender{email: senderEmail(email), name: senderName(name)}
}

func senderEmail(v string) string {
	start := strings.Index(v, "<")
	if start < 0 {
		return v
	}

	end := strings.Index(v[start+1:], ">")
	if end < 0 {
		return v
	}

	return angleStripper.Replace(v[start+1 : start+1+end])
}

// senderName keeps everything before the first "<", trailing spaces included.
func senderName(v string) string {
	idx := strings.Index(v, "<")
	if idx < 0 {
		return v
	}

	return angleStripper.Replace(v[:idx])
}
