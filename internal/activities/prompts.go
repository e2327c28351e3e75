package activities

import (
	"fmt"
	"sort"
	"strings"

	"github.com/fionalabs/outreach-orchestrator/internal/research"
)

// researchPromptTemplate instructs the agent to investigate a lead and reply
// in the marker format the parser understands. The agent may instead return
// the structured JSON shape via its research tool; both paths are handled.
const researchPromptTemplate = `You are a professional lead researcher investigating a potential business contact.

Research %s for someone working in %s.
%s
Find their current role and company, professional background, recent
achievements or projects, industry focus, and social media presence
(LinkedIn, Twitter, GitHub).

Reply with your findings after a RESEARCH_DATA: header. Keep the summary
concise but detailed enough for personalized cold outreach.`

// draftPromptTemplate asks for a personalized email with explicit
// SUBJECT:/BODY: headers so the reply can be parsed mechanically.
const draftPromptTemplate = `You are a personalized cold outreach specialist.

I work in %s. Using the research below, write a professional cold outreach
email to %s that opens with a personalized reference to their work, explains
clear value relevant to their interests, stays authentic and concise
(100-150 words), and ends with a clear call-to-action.
%s
Research:
%s

Format your response exactly as:
SUBJECT: [subject line]
BODY: [email body]`

func buildResearchPrompt(in ResearchLeadInput) string {
	context := ""
	if in.CareerDescription != "" {
		context += fmt.Sprintf("\nAbout me: %s\n", in.CareerDescription)
	}
	if in.ContactType != "" {
		context += fmt.Sprintf("\nContact type: %s\n", in.ContactType)
	}
	if len(in.ContactContext) > 0 {
		keys := make([]string, 0, len(in.ContactContext))
		for k := range in.ContactContext {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		context += "\nWhat I already know about them:\n"
		for _, k := range keys {
			context += fmt.Sprintf("- %s: %v\n", k, in.ContactContext[k])
		}
	}
	if in.PriorResearch != nil {
		context += fmt.Sprintf("\nEarlier research on this lead:\n%s\nBuild on it rather than repeating it.\n",
			summarizeRecord(*in.PriorResearch))
	}
	return fmt.Sprintf(researchPromptTemplate, in.LeadName, in.CareerField, context)
}

func buildDraftPrompt(in DraftEmailInput) string {
	feedback := ""
	if in.Attempt > 1 && in.Feedback != "" {
		feedback = fmt.Sprintf("\nThe previous draft was rejected with this feedback: %s\nAddress it in the new draft.\n", in.Feedback)
	} else if in.Attempt > 1 {
		feedback = "\nThe previous draft was rejected. Write a noticeably different angle.\n"
	}
	return fmt.Sprintf(draftPromptTemplate, in.CareerField, in.LeadName, feedback, summarizeRecord(in.Research))
}

// summarizeRecord renders a record as prompt-friendly plain text.
func summarizeRecord(r research.Record) string {
	var b strings.Builder
	writeLine := func(label, value string) {
		if value != "" {
			fmt.Fprintf(&b, "%s: %s\n", label, value)
		}
	}
	writeLine("Name", r.Name)
	writeLine("Current role", r.CurrentRole)
	writeLine("Company", r.Company)
	writeLine("Industry focus", r.IndustryFocus)
	if len(r.ProfessionalBackground) > 0 {
		fmt.Fprintf(&b, "Background: %s\n", strings.Join(r.ProfessionalBackground, "; "))
	}
	if len(r.RecentAchievements) > 0 {
		fmt.Fprintf(&b, "Recent achievements: %s\n", strings.Join(r.RecentAchievements, "; "))
	}
	for _, platform := range research.SocialPlatforms {
		if url := r.SocialMedia[platform]; url != "" {
			fmt.Fprintf(&b, "%s: %s\n", platform, url)
		}
	}
	if r.NotableConnections != "" {
		fmt.Fprintf(&b, "Notes: %s\n", r.NotableConnections)
	}
	return b.String()
}
