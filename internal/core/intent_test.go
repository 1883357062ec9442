package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetectIntent(t *testing.T) {
	tests := []struct {
		message string
		want    Intent
	}{
		{"Can you explain binary search trees?", IntentStudy},
		{"help me understand recursion", IntentStudy},
		{"I have an exam tomorrow", IntentStudy},
		{"what are the job prospects in medicine", IntentCareer},
		{"average salary for engineers", IntentCareer},
		{"mark me present for physics", IntentAttendance},
		{"show my attendance records", IntentAttendance},
		{"any unread emails?", IntentEmail},
		{"check my gmail inbox", IntentEmail},
		{"hello there", IntentGeneral},
		{"how's the weather", IntentGeneral},
	}

	for _, tt := range tests {
		t.Run(tt.message, func(t *testing.T) {
			assert.Equal(t, tt.want, DetectIntent(tt.message))
		})
	}
}

// The rule order decides ties: study beats career beats attendance beats
// email. Changing the order changes user-visible behavior.
func TestDetectIntentPriorityOrder(t *testing.T) {
	assert.Equal(t, IntentStudy, DetectIntent("study tips for my career"))
	assert.Equal(t, IntentCareer, DetectIntent("job options after this class"))
	assert.Equal(t, IntentAttendance, DetectIntent("mark my class, then check email"))

	wantOrder := []Intent{IntentStudy, IntentCareer, IntentAttendance, IntentEmail}
	for i, rule := range intentRules {
		assert.Equal(t, wantOrder[i], rule.intent)
	}
}

func TestWantsAttendanceMark(t *testing.T) {
	assert.True(t, wantsAttendanceMark("Mark me present for math"))
	assert.True(t, wantsAttendanceMark("I'm here for the physics lecture"))
	assert.False(t, wantsAttendanceMark("show my attendance records"))
}

func TestWantsEmailDraft(t *testing.T) {
	assert.True(t, wantsEmailDraft("draft an email to my professor"))
	assert.True(t, wantsEmailDraft("compose a message"))
	assert.False(t, wantsEmailDraft("any unread emails?"))
}

func TestExtractCareerField(t *testing.T) {
	assert.Equal(t, "medicine", extractCareerField("Is medicine a good career?"))
	assert.Equal(t, "finance", extractCareerField("jobs in finance"))
	assert.Equal(t, "technology", extractCareerField("what should I do with my life"))
}

func TestExtractCourseName(t *testing.T) {
	tests := []struct {
		message string
		want    string
	}{
		{"mark me present for physics", "Physics"},
		{"attendance for computer science please", "Computer Science"},
		{"mark my attendance for Databases", "Databases"},
		{"mark me present", "General"},
	}

	for _, tt := range tests {
		t.Run(tt.message, func(t *testing.T) {
			assert.Equal(t, tt.want, extractCourseName(tt.message))
		})
	}
}

func TestExtractEmailDetails(t *testing.T) {
	d := extractEmailDetails("draft an email to prof.smith@uni.edu subject: Late submission. I need more time")
	assert.Equal(t, "prof.smith@uni.edu", d.To)
	assert.Equal(t, "Late submission", d.Subject)
	assert.NotEmpty(t, d.Body)

	d = extractEmailDetails("write an email saying thanks")
	assert.Empty(t, d.To)
	assert.Equal(t, "Message from StudyRobo", d.Subject)
}
