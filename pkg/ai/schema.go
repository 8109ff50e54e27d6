package ai

import (
	openai "github.com/sashabaranov/go-openai"
	"github.com/sashabaranov/go-openai/jsonschema"
)

// EvaluationFunctionName is the tool the evaluator is forced to call.
const EvaluationFunctionName = "submit_evaluation"

func evaluationTool() openai.Tool {
	question := jsonschema.Definition{
		Type: jsonschema.Object,
		Properties: map[string]jsonschema.Definition{
			"question_number": {Type: jsonschema.String},
			"question_text":   {Type: jsonschema.String},
			"student_answer":  {Type: jsonschema.String},
			"expected_answer": {Type: jsonschema.String},
			"score":           {Type: jsonschema.Number},
			"max_score":       {Type: jsonschema.Number},
			"feedback":        {Type: jsonschema.String},
			"improvement_tip": {Type: jsonschema.String},
		},
		Required: []string{"question_number", "question_text", "student_answer", "expected_answer", "score", "max_score", "feedback", "improvement_tip"},
	}

	concept := jsonschema.Definition{
		Type: jsonschema.Object,
		Properties: map[string]jsonschema.Definition{
			"score":      {Type: jsonschema.Number},
			"max_score":  {Type: jsonschema.Number},
			"percentage": {Type: jsonschema.Number},
		},
	}

	stringList := jsonschema.Definition{Type: jsonschema.Array, Items: &jsonschema.Definition{Type: jsonschema.String}}

	parameters := jsonschema.Definition{
		Type: jsonschema.Object,
		Properties: map[string]jsonschema.Definition{
			"total_score":             {Type: jsonschema.Number, Description: "Total score obtained by student"},
			"max_score":               {Type: jsonschema.Number, Description: "Maximum possible score"},
			"weak_areas":              {Type: jsonschema.Array, Items: &jsonschema.Definition{Type: jsonschema.String}, Description: "List of weak areas"},
			"improvement_suggestions": {Type: jsonschema.String, Description: "Detailed suggestions for improvement"},
			"detailed_analytics": {
				Type: jsonschema.Object,
				Properties: map[string]jsonschema.Definition{
					"questions":                {Type: jsonschema.Array, Items: &question},
					"concept_wise_performance": {Type: jsonschema.Object, AdditionalProperties: concept},
					"strengths":                stringList,
					"areas_to_focus":           stringList,
				},
				Required: []string{"questions", "concept_wise_performance", "strengths", "areas_to_focus"},
			},
		},
		Required: []string{"total_score", "max_score", "weak_areas", "improvement_suggestions", "detailed_analytics"},
	}

	return openai.Tool{
		Type: openai.ToolTypeFunction,
		Function: &openai.FunctionDefinition{
			Name:        EvaluationFunctionName,
			Description: "Submit the comprehensive evaluation results",
			Parameters:  parameters,
		},
	}
}
