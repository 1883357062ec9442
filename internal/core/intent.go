package core

import (
	"regexp"
	"strings"
)

type Intent string

const (
	IntentStudy      Intent = "study"
	IntentCareer     Intent = "career"
	IntentAttendance Intent = "attendance"
	IntentEmail      Intent = "email"
	IntentGeneral    Intent = "general"
)

type intentRule struct {
	intent   Intent
	keywords []string
}

// intentRules is evaluated in order and the first matching rule wins, so a
// message like "mark attendance for my study class" classifies as study.
// The order (study, career, attendance, email) is part of the contract and
// is pinned by a test.
var intentRules = []intentRule{
	{IntentStudy, []string{
		"study", "learn", "explain", "what is", "help me understand",
		"exam", "topic", "concept", "algorithm", "syllabus", "material",
		"notes", "homework", "assignment",
	}},
	{IntentCareer, []string{
		"career", "job", "salary", "work", "employment", "profession",
		"field", "market", "opportunity", "growth",
	}},
	{IntentAttendance, []string{
		"attendance", "present", "absent", "mark", "class", "course",
	}},
	{IntentEmail, []string{
		"email", "gmail", "inbox", "draft", "send", "message", "unread", "check",
	}},
}

// DetectIntent classifies a message by keyword lookup on the lowercased
// text. Messages matching nothing are general.
func DetectIntent(message string) Intent {
	lower := strings.ToLower(message)
	for _, rule := range intentRules {
		for _, kw := range rule.keywords {
			if strings.Contains(lower, kw) {
				return rule.intent
			}
		}
	}
	return IntentGeneral
}

var attendanceMarkVerbs = []string{"mark", "present", "here", "attending"}

// wantsAttendanceMark distinguishes "mark me present" from "show my
// attendance records".
func wantsAttendanceMark(message string) bool {
	lower := strings.ToLower(message)
	for _, v := range attendanceMarkVerbs {
		if strings.Contains(lower, v) {
			return true
		}
	}
	return false
}

var emailDraftVerbs = []string{"draft", "write", "compose", "send"}

func wantsEmailDraft(message string) bool {
	lower := strings.ToLower(message)
	for _, v := range emailDraftVerbs {
		if strings.Contains(lower, v) {
			return true
		}
	}
	return false
}

var knownFields = []string{
	"technology", "medicine", "business", "law", "education",
	"engineering", "finance", "marketing", "design", "science",
}

// extractCareerField picks the first known field mentioned in the message,
// defaulting to technology.
func extractCareerField(message string) string {
	lower := strings.ToLower(message)
	for _, f := range knownFields {
		if strings.Contains(lower, f) {
			return f
		}
	}
	return "technology"
}

var knownCourses = []string{
	"mathematics", "math", "physics", "chemistry", "biology",
	"computer science", "programming", "history", "english",
	"economics", "statistics",
}

var courseStopwords = map[string]bool{
	"mark": true, "attendance": true, "present": true, "absent": true,
	"class": true, "course": true, "today": true, "please": true,
	"show": true, "record": true, "records": true, "lecture": true,
	"attending": true, "here": true, "this": true, "that": true,
	"with": true, "from": true, "have": true,
}

// extractCourseName finds a known course in the message, falls back to the
// first word longer than three characters that is not attendance chatter,
// and defaults to General.
func extractCourseName(message string) string {
	lower := strings.ToLower(message)
	for _, c := range knownCourses {
		if strings.Contains(lower, c) {
			return titleCase(c)
		}
	}

	for _, w := range strings.Fields(lower) {
		w = strings.Trim(w, ".,!?\"'")
		if len(w) > 3 && !courseStopwords[w] {
			return titleCase(w)
		}
	}
	return "General"
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

var (
	emailAddrRe    = regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)
	emailSubjectRe = regexp.MustCompile(`(?i)subject:\s*(.+?)(?:\.|$)`)
)

type emailDetails struct {
	To      string
	Subject string
	Body    string
}

// extractEmailDetails pulls a recipient address and optional "subject: ..."
// clause out of the message. The whole message becomes the draft body.
func extractEmailDetails(message string) emailDetails {
	d := emailDetails{Subject: "Message from StudyRobo", Body: message}
	if addr := emailAddrRe.FindString(message); addr != "" {
		d.To = addr
	}
	if m := emailSubjectRe.FindStringSubmatch(message); m != nil {
		d.Subject = strings.TrimSpace(m[1])
	}
	return d
}
