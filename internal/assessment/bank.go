package assessment

import "github.com/pavelanni/mcqengine/internal/model"

// bank holds the fixed five-question template of every test type.
var bank = map[model.TestType][]model.Question{
	model.TestAptitude: {
		{Prompt: "What is 15% of 200?", Options: []string{"20", "25", "35", "30"}, CorrectIndex: 3},
		{Prompt: "If a train travels 120 km in 2 hours, what is its average speed?", Options: []string{"50 km/h", "60 km/h", "70 km/h", "80 km/h"}, CorrectIndex: 1},
		{Prompt: "Which number comes next: 2, 6, 12, 20, ...?", Options: []string{"30", "28", "32", "24"}, CorrectIndex: 0},
		{Prompt: "A shop sells a pen at 20% profit for 60. What was its cost price?", Options: []string{"45", "48", "50", "55"}, CorrectIndex: 2},
		{Prompt: "If 5 workers finish a job in 12 days, how long do 6 workers take?", Options: []string{"8 days", "10 days", "12 days", "14 days"}, CorrectIndex: 1},
	},
	model.TestTechnical: {
		{Prompt: "Which data structure works on a first-in, first-out basis?", Options: []string{"Stack", "Queue", "Tree", "Graph"}, CorrectIndex: 1},
		{Prompt: "What is the worst-case time complexity of binary search?", Options: []string{"O(log n)", "O(n)", "O(n log n)", "O(1)"}, CorrectIndex: 0},
		{Prompt: "Which HTTP status code means the resource was not found?", Options: []string{"200", "301", "500", "404"}, CorrectIndex: 3},
		{Prompt: "Which SQL clause filters rows after grouping?", Options: []string{"WHERE", "ORDER BY", "HAVING", "LIMIT"}, CorrectIndex: 2},
		{Prompt: "Which protocol resolves host names to IP addresses?", Options: []string{"DNS", "DHCP", "FTP", "SMTP"}, CorrectIndex: 0},
	},
	model.TestPsychometric: {
		{Prompt: "A teammate misses a deadline that affects your work. What do you do first?", Options: []string{"Report them to the manager", "Talk to them about what happened", "Do their work silently", "Ignore it"}, CorrectIndex: 1},
		{Prompt: "You receive critical feedback on a project. How do you respond?", Options: []string{"Defend every decision", "Dismiss it", "Ask questions and plan improvements", "Avoid the reviewer"}, CorrectIndex: 2},
		{Prompt: "You have three urgent tasks and time for two. What do you do?", Options: []string{"Prioritize and tell stakeholders", "Work overtime without telling anyone", "Pick the easiest two", "Start all three at once"}, CorrectIndex: 0},
		{Prompt: "A new tool would change your team's workflow. How do you react?", Options: []string{"Refuse to use it", "Wait for others to decide", "Complain about the change", "Try it and share what you learn"}, CorrectIndex: 3},
		{Prompt: "You notice an error in a report already sent to a client. What do you do?", Options: []string{"Hope nobody notices", "Tell your lead and send a correction", "Blame the data source", "Delete the report"}, CorrectIndex: 1},
	},
}

// QuestionsFor returns a copy of the template for t, or nil for an unknown type.
func QuestionsFor(t model.TestType) []model.Question {
	src, ok := bank[t]
	if !ok {
		return nil
	}
	out := make([]model.Question, len(src))
	for i, q := range src {
		out[i] = model.Question{
			Prompt:       q.Prompt,
			Options:      append([]string(nil), q.Options...),
			CorrectIndex: q.CorrectIndex,
		}
	}
	return out
}
