// Package content — prompt templates for post and reply generation.
package content

import "fmt"

const (
	postSystemPrompt = "You write short, engaging social media posts. " +
		"Stay under 280 characters, no hashtag spam, no emojis unless they add meaning, " +
		"and never mention that you are an AI."

	replySystemPrompt = "You answer comments on your own social media posts. " +
		"Be warm, concise and specific to the comment. One or two sentences, " +
		"under 280 characters, and never mention that you are an AI."
)

// postUserPrompt renders the user message for standalone post generation.
func postUserPrompt(topic string) string {
	if topic == "" {
		return "Write one post about something genuinely interesting in your field today. Return only the post text."
	}
	return fmt.Sprintf("Write one post about: %s. Return only the post text.", topic)
}

// replyUserPrompt renders the user message for answering a comment.
func replyUserPrompt(rc ReplyContext) string {
	username := rc.AuthorUsername
	if username == "" {
		username = "friend"
	}
	if rc.PostText != "" {
		return fmt.Sprintf(
			"Your post was: %q\n@%s commented: %q\nWrite a reply to @%s. Return only the reply text.",
			rc.PostText, username, rc.Text, username,
		)
	}
	return fmt.Sprintf(
		"@%s commented on your post: %q\nWrite a reply to @%s. Return only the reply text.",
		username, rc.Text, username,
	)
}
