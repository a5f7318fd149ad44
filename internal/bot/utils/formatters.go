package utils

import (
	"fmt"
	"strings"

	"engagement-engine/internal/models"
)

var activityIcons = map[string]string{
	models.ActivityStatusInfo:    "🔔",
	models.ActivityStatusSuccess: "✅",
	models.ActivityStatusWarning: "⏰",
	models.ActivityStatusError:   "⚠️",
}

// FormatActivity renders an activity as a MarkdownV2 message.
func FormatActivity(activity *models.Activity) string {
	var sb strings.Builder

	icon, ok := activityIcons[activity.Status]
	if !ok {
		icon = activityIcons[models.ActivityStatusInfo]
	}

	sb.WriteString(fmt.Sprintf("%s *%s*\n\n", icon, EscapeMarkdown(activityTitle(activity.Type))))
	sb.WriteString(EscapeMarkdown(activity.Message))

	if end, ok := activity.Meta["endDate"].(string); ok && end != "" {
		sb.WriteString(fmt.Sprintf("\n\n📅 *Ends:* %s", EscapeMarkdown(end)))
	}

	if tier, ok := activity.Meta["badge"].(string); ok && tier != "" {
		sb.WriteString(fmt.Sprintf("\n\n🏅 *Badge:* %s", EscapeMarkdown(tier)))
	}

	return sb.String()
}

func activityTitle(activityType string) string {
	words := strings.Split(activityType, "-")
	for i, w := range words {
		if w != "" {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}

// ReferenceURL builds the web link for the activity's referenced content.
func ReferenceURL(baseURL string, activity *models.Activity) string {
	if activity.ReferenceID == nil || activity.ReferenceType == nil || baseURL == "" {
		return ""
	}

	base := strings.TrimRight(baseURL, "/")
	switch *activity.ReferenceType {
	case models.ReferenceJob:
		return fmt.Sprintf("%s/jobs/%s", base, *activity.ReferenceID)
	case models.ReferenceApplication:
		return fmt.Sprintf("%s/applications/%s", base, *activity.ReferenceID)
	}
	return ""
}

func FormatWelcomeMessage(name string) string {
	if name == "" {
		name = "there"
	}

	return fmt.Sprintf(`👋 Hi, *%s*\!

Your Telegram chat is now linked\. You will receive a message here whenever something happens to your jobs and applications\.

/stop \- stop Telegram notifications
/help \- help`, EscapeMarkdown(name))
}

func FormatHelpMessage() string {
	return `*📖 Help*

This bot forwards your marketplace notifications\.

*Commands:*

/start \<token\> \- link this chat using the token from your profile page
/stop \- unlink this chat
/help \- this message`
}

func EscapeMarkdown(text string) string {
	// _ * [ ] ( ) ~ ` > # + - = | { } . !
	replacer := strings.NewReplacer(
		"_", "\\_",
		"*", "\\*",
		"[", "\\[",
		"]", "\\]",
		"(", "\\(",
		")", "\\)",
		"~", "\\~",
		"`", "\\`",
		">", "\\>",
		"#", "\\#",
		"+", "\\+",
		"-", "\\-",
		"=", "\\=",
		"|", "\\|",
		"{", "\\{",
		"}", "\\}",
		".", "\\.",
		"!", "\\!",
	)

	return replacer.Replace(text)
}
