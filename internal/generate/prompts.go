package generate

import (
	"fmt"
	"strings"

	"skald/internal/jobs"
)

const (
	storySystemPrompt = "You are a creative storyteller. Create engaging, well-structured stories " +
		"that are suitable for video adaptation. Focus on vivid descriptions and clear scene transitions."

	educationalSystemPrompt = "You are an expert educator. Create clear, engaging educational content " +
		"that is well-structured and easy to understand."

	podcastSystemPrompt = "You are a podcast writer. Write natural, flowing scripts meant to be read " +
		"aloud by a single narrator."

	bookSystemPrompt = "You are a professional author. Write polished long-form prose that stays " +
		"consistent with the book's outline and tone."

	postSystemPrompt = "You are a social media copywriter. Respond with a JSON object containing a " +
		`"post" string and a "hashtags" array of strings, and nothing else.`
)

func storyPrompt(topic string) string {
	return fmt.Sprintf("Create a short story based on this character description: %s\n"+
		"The story should be engaging and suitable for video adaptation with clear scenes. "+
		"Separate scenes with blank lines.", topic)
}

func educationalPrompt(topic, style string) string {
	if strings.TrimSpace(style) == "" {
		style = "lecture"
	}
	return fmt.Sprintf("Create an educational %s about %s. The content should be engaging, "+
		"informative, and well-structured. Include an introduction to the topic, key concepts "+
		"and definitions, examples or applications, and a summary. Separate sections with blank lines.",
		style, topic)
}

func podcastTopicPrompt(topic string) string {
	return fmt.Sprintf("Create a natural, engaging podcast script about %s. "+
		"Write it as a single, flowing narrative without any labels or formatting. "+
		"The script should be approximately 3-5 minutes in reading length. "+
		"Start with a brief introduction, then dive into the main content, and end with a conclusion. "+
		"Do not include any labels like 'Host:', 'Introduction:', or 'Conclusion:'.", topic)
}

const podcastFreePrompt = "Create a natural, engaging podcast script on any interesting topic of " +
	"your choice. Write it as a single, flowing narrative without any labels or formatting. " +
	"The script should be suitable for a general audience and approximately 3-5 minutes in reading " +
	"length. Do not include any labels like 'Host:', 'Introduction:', or 'Conclusion:'."

func outlinePrompt(topic string, chapters int, genre, style string) string {
	return fmt.Sprintf("Create a chapter outline for a %s book about %s, written in a %s style. "+
		"Return exactly %d chapter titles wrapped in numbered tags like "+
		"<chapter1>First chapter title</chapter1>, numbered from 1. Return only the tags.",
		genre, topic, style, chapters)
}

func chapterPrompt(topic, genre, style, title string, number, total int, outline []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Write chapter %d of %d for a %s book about %s, written in a %s style.\n",
		number, total, genre, topic, style)
	fmt.Fprintf(&b, "This chapter is titled: %s\n", title)
	if len(outline) > 0 {
		b.WriteString("The full outline is:\n")
		for i, entry := range outline {
			fmt.Fprintf(&b, "%d. %s\n", i+1, entry)
		}
	}
	b.WriteString("Write only the chapter prose, without repeating the chapter title or outline.")
	return b.String()
}

func postPrompt(topic string, opts PostOptions) string {
	lengths := map[string]string{
		"short":  "approximately 200 words",
		"medium": "approximately 500 words",
		"long":   "approximately 1000 words",
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Write a social media post on the topic: %q.\n", topic)
	fmt.Fprintf(&b, "The desired style for the post is: %s.\n", opts.style())
	fmt.Fprintf(&b, "The desired length for the post is: %s.\n", lengths[opts.length()])
	if strings.TrimSpace(opts.TargetAudience) != "" {
		fmt.Fprintf(&b, "The target audience for this post is: %s.\n", opts.TargetAudience)
	}
	b.WriteString("Ensure the content is well-structured, engaging, and directly addresses the topic.")
	return b.String()
}

func mainImagePrompt(kind jobs.ContentType, topic string) string {
	if kind == jobs.TypeEducational {
		return fmt.Sprintf("Educational illustration about %s, professional diagram, clean design, educational style", topic)
	}
	return fmt.Sprintf("Portrait of %s, high quality digital art, detailed, professional photography", topic)
}

func sceneImagePrompt(kind jobs.ContentType, excerpt string) string {
	if kind == jobs.TypeEducational {
		return fmt.Sprintf("Educational illustration: %s, professional diagram, educational style", excerpt)
	}
	return fmt.Sprintf("Scene from the story: %s, cinematic, high quality digital art", excerpt)
}
