package ai

import (
	"fmt"
	"strings"
)

// AnswerSheetOCRInstruction asks for one line per question so the evaluator can align answers.
const AnswerSheetOCRInstruction = "Extract all text from this answer sheet. Identify every question number and the student's answer. " +
	"Return one line per detected question in the form `Q<n>: <answer text>`. Preserve all visible working, " +
	"formulas and diagrams described in words. Do not add commentary."

// AnswerKeyOCRInstruction transcribes an answer key or question paper in the same line format.
const AnswerKeyOCRInstruction = "Extract text from this answer key or question paper. Identify questions and their expected answers " +
	"if present. Return one line per question in the form `Q<n>: <question and expected answer>`."

func evaluatorSystemPrompt() string {
	return "You are an expert exam evaluator. Analyze student answers and provide comprehensive feedback."
}

func buildEvaluationPrompt(input EvaluationInput) string {
	builder := strings.Builder{}
	builder.WriteString("You are an expert exam evaluator. Analyze the student's answers and provide detailed evaluation.\n\n")
	builder.WriteString("STUDENT'S ANSWER SHEET:\n")
	builder.WriteString(input.AnswerSheetText)
	builder.WriteString("\n")

	if strings.TrimSpace(input.AnswerKeyText) != "" {
		builder.WriteString("\nANSWER KEY/QUESTIONS PROVIDED:\n")
		builder.WriteString(input.AnswerKeyText)
		builder.WriteString("\n\nIf the answer key contains only questions without answers, generate the expected answers based on the course context below.\n")
	} else {
		builder.WriteString("\nNo answer key was provided. Infer the expected answers from the questions and the course context.\n")
	}

	if len(input.MaterialNames) > 0 {
		builder.WriteString("\nCOURSE CONTEXT:\nAvailable materials: ")
		builder.WriteString(strings.Join(input.MaterialNames, ", "))
		builder.WriteString("\n")
	}

	builder.WriteString(`
Analyze the student's performance and provide detailed evaluation including:
- Overall score and maximum possible score
- Weak areas where student needs improvement
- Detailed improvement suggestions
- Question-by-question analysis with student's answer, expected answer, score, feedback, and improvement tips
- Concept-wise performance breakdown
- Student's strengths and areas to focus on
`)
	return builder.String()
}

// StudyContentPrompt asks for per-module summaries, mindmaps and acronyms derived from a syllabus.
func StudyContentPrompt(syllabus string) CompletionRequest {
	builder := strings.Builder{}
	builder.WriteString("Analyze this syllabus carefully and generate detailed study content that strictly follows it.\n\n")
	builder.WriteString("SYLLABUS CONTENT:\n")
	builder.WriteString(syllabus)
	builder.WriteString(`

For EACH module, unit or topic in the syllabus create:
- a summary of 10-20 detailed bullet points covering every subtopic
- a hierarchical mindmap with a central topic and 4-8 coloured branches of 2-5 subbranches each
- acronyms that help memorise the key concepts

Stay within the syllabus scope. Return ONLY a JSON object of the form:
{"modules": [{"name": "Module name", "summary": ["point"], "mindmap": {"central": "topic", "branches": [{"name": "branch", "color": "#FF6B6B", "subbranches": ["sub"]}]}, "acronyms": [{"acronym": "ACID", "meaning": "Atomicity, Consistency, Isolation, Durability"}]}]}
`)

	return CompletionRequest{
		System: "You are an expert educator creating study materials. Generate study content based ONLY on the provided syllabus.",
		User:   builder.String(),
	}
}

// MockPaperPrompt asks for count questions of questionType grounded on the course content.
func MockPaperPrompt(courseContent, questionType string, count int) CompletionRequest {
	kind, requirement, shape := "long answer questions", "Each question is worth 10 marks", `"answer": "Expected answer outline", "marks": 10`
	if questionType == "mcq" {
		kind = "multiple choice questions with 4 options"
		requirement = "Each MCQ has 4 options with exactly one correct answer"
		shape = `"options": [{"text": "Option A", "is_correct": false}, {"text": "Option B", "is_correct": true}], "marks": 1`
	}

	builder := strings.Builder{}
	fmt.Fprintf(&builder, "Based ONLY on the following course content, generate exactly %d %s for a mock exam.\n\n", count, kind)
	builder.WriteString("COURSE CONTENT:\n")
	builder.WriteString(courseContent)
	builder.WriteString("\n\nREQUIREMENTS:\n- ")
	builder.WriteString(requirement)
	builder.WriteString("\n- Cover the modules proportionally\n- Test understanding, not just recall\n\n")
	fmt.Fprintf(&builder, "Return ONLY a JSON object: {\"questions\": [{\"text\": \"Question text\", %s, \"concept\": \"Main concept tested\"}]}\n", shape)

	return CompletionRequest{
		System: fmt.Sprintf("You are an expert exam paper creator. Generate %s strictly based on the provided course content.", kind),
		User:   builder.String(),
	}
}
