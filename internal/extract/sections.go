package extract

import (
	"regexp"
	"strings"

	"cvintake/internal/resume"
)

// sectionRule 描述一个段落：从第一个标题命中处开始，
// 截取到其后最早出现的终止标题（或文本末尾）为止。
type sectionRule struct {
	heading    *regexp.Regexp
	terminator *regexp.Regexp
}

var (
	educationRule = sectionRule{
		heading:    regexp.MustCompile(`(?i)Education`),
		terminator: regexp.MustCompile(`(?i)Experience|Skills|Projects`),
	}
	qualificationsRule = sectionRule{
		heading:    regexp.MustCompile(`(?i)Qualifications|Skills`),
		terminator: regexp.MustCompile(`(?i)Experience|Education|Projects`),
	}
	projectsRule = sectionRule{
		heading:    regexp.MustCompile(`(?i)Projects`),
		terminator: regexp.MustCompile(`(?i)Education|Experience|Skills`),
	}
)

func (r sectionRule) find(text string) []string {
	loc := r.heading.FindStringIndex(text)
	if loc == nil {
		return []string{}
	}

	end := len(text)
	if next := r.terminator.FindStringIndex(text[loc[1]:]); next != nil {
		end = loc[1] + next[0]
	}

	return []string{strings.TrimSpace(text[loc[0]:end])}
}

// Sections 按固定标题把纯文本切成三个段落。
// 标题不区分大小写，也不要求独占一行，"Educational" 同样会命中。
func Sections(text string) resume.Content {
	content := resume.EmptyContent()
	content.Education = educationRule.find(text)
	content.Qualifications = qualificationsRule.find(text)
	content.Projects = projectsRule.find(text)
	return content
}
