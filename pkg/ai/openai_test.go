package ai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

type gatewayRecorder struct {
	calls    atomic.Int32
	requests []map[string]interface{}
}

func newTestGateway(t *testing.T, handler func(w http.ResponseWriter, body map[string]interface{})) (*OpenAIGateway, *gatewayRecorder) {
	t.Helper()

	recorder := &gatewayRecorder{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/chat/completions", r.URL.Path)
		require.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		recorder.calls.Add(1)
		recorder.requests = append(recorder.requests, body)

		w.Header().Set("Content-Type", "application/json")
		handler(w, body)
	}))
	t.Cleanup(server.Close)

	gateway, err := NewOpenAIGateway(OpenAIConfig{
		APIKey:  "test-key",
		BaseURL: server.URL + "/v1",
		Model:   "test-model",
		Logger:  zerolog.Nop(),
	})
	require.NoError(t, err)
	return gateway, recorder
}

func writeCompletion(w http.ResponseWriter, message map[string]interface{}) {
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"id":      "chatcmpl-test",
		"object":  "chat.completion",
		"model":   "test-model",
		"choices": []interface{}{map[string]interface{}{"index": 0, "message": message, "finish_reason": "stop"}},
	})
}

const toolArguments = `{"total_score": 14, "max_score": 20, "weak_areas": ["Thermodynamics"], "improvement_suggestions": "Revise entropy.",
"detailed_analytics": {"questions": [{"question_number": "Q1", "question_text": "Capital of France?", "student_answer": "Paris",
"expected_answer": "Paris", "score": 10, "max_score": 10, "feedback": "Correct", "improvement_tip": "None"}],
"concept_wise_performance": {"Geography": {"score": 10, "max_score": 10, "percentage": 100}}, "strengths": ["Recall"], "areas_to_focus": ["Entropy"]}}`

func TestGatewayEvaluateParsesToolCall(t *testing.T) {
	gateway, recorder := newTestGateway(t, func(w http.ResponseWriter, _ map[string]interface{}) {
		writeCompletion(w, map[string]interface{}{
			"role": "assistant",
			"tool_calls": []interface{}{map[string]interface{}{
				"id":       "call_1",
				"type":     "function",
				"function": map[string]interface{}{"name": EvaluationFunctionName, "arguments": toolArguments},
			}},
		})
	})

	record, err := gateway.Evaluate(context.Background(), EvaluationInput{AnswerSheetText: "Q1: Paris", MaterialNames: []string{"notes.pdf"}})
	require.NoError(t, err)
	require.Equal(t, 14.0, record.TotalScore)
	require.Equal(t, 20.0, record.MaxScore)
	require.Equal(t, []string{"Thermodynamics"}, record.WeakAreas)
	require.Equal(t, "Revise entropy.", record.ImprovementSuggestions)
	require.Len(t, record.DetailedAnalytics.Questions, 1)
	require.Equal(t, "Paris", record.DetailedAnalytics.Questions[0].ExpectedAnswer)
	require.Equal(t, 100.0, record.DetailedAnalytics.ConceptWisePerformance["Geography"].Percentage)

	require.EqualValues(t, 1, recorder.calls.Load())
	request := recorder.requests[0]
	choice := request["tool_choice"].(map[string]interface{})
	require.Equal(t, EvaluationFunctionName, choice["function"].(map[string]interface{})["name"])
	tools := request["tools"].([]interface{})
	require.Len(t, tools, 1)

	messages := request["messages"].([]interface{})
	prompt := messages[1].(map[string]interface{})["content"].(string)
	require.Contains(t, prompt, "Q1: Paris")
	require.Contains(t, prompt, "Available materials: notes.pdf")
}

func TestGatewayEvaluateFallsBackToFencedJSON(t *testing.T) {
	gateway, _ := newTestGateway(t, func(w http.ResponseWriter, _ map[string]interface{}) {
		writeCompletion(w, map[string]interface{}{
			"role":    "assistant",
			"content": "```json\n" + toolArguments + "\n```",
		})
	})

	record, err := gateway.Evaluate(context.Background(), EvaluationInput{AnswerSheetText: "Q1: Paris"})
	require.NoError(t, err)
	require.Equal(t, 14.0, record.TotalScore)
	require.Equal(t, []string{"Recall"}, record.DetailedAnalytics.Strengths)
}

func TestGatewayEvaluateRejectsProse(t *testing.T) {
	gateway, _ := newTestGateway(t, func(w http.ResponseWriter, _ map[string]interface{}) {
		writeCompletion(w, map[string]interface{}{"role": "assistant", "content": "The student did well."})
	})

	_, err := gateway.Evaluate(context.Background(), EvaluationInput{AnswerSheetText: "Q1: Paris"})
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrMalformedResponse))
}

func TestGatewayClassifiesUpstreamStatus(t *testing.T) {
	cases := []struct {
		status int
		want   error
	}{
		{status: http.StatusTooManyRequests, want: ErrRateLimited},
		{status: http.StatusPaymentRequired, want: ErrPaymentRequired},
		{status: http.StatusInternalServerError, want: ErrGatewayUnavailable},
	}

	for _, tc := range cases {
		t.Run(http.StatusText(tc.status), func(t *testing.T) {
			gateway, recorder := newTestGateway(t, func(w http.ResponseWriter, _ map[string]interface{}) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(`{"error":{"message":"upstream refused","type":"gateway_error"}}`))
			})

			_, err := gateway.Evaluate(context.Background(), EvaluationInput{AnswerSheetText: "Q1: Paris"})
			require.Error(t, err)
			require.True(t, errors.Is(err, tc.want), err.Error())
			require.EqualValues(t, 1, recorder.calls.Load())
		})
	}
}

func TestGatewayExtractTextSendsImageParts(t *testing.T) {
	gateway, recorder := newTestGateway(t, func(w http.ResponseWriter, _ map[string]interface{}) {
		writeCompletion(w, map[string]interface{}{"role": "assistant", "content": "Q1: Paris\nQ2: 42"})
	})

	text, err := gateway.ExtractText(context.Background(), OCRRequest{
		Instruction: AnswerSheetOCRInstruction,
		Images:      []string{"data:image/png;base64,AAAA", "data:image/png;base64,BBBB"},
	})
	require.NoError(t, err)
	require.Equal(t, "Q1: Paris\nQ2: 42", text)

	messages := recorder.requests[0]["messages"].([]interface{})
	parts := messages[0].(map[string]interface{})["content"].([]interface{})
	require.Len(t, parts, 3)
	require.Equal(t, "text", parts[0].(map[string]interface{})["type"])
	require.Equal(t, "image_url", parts[1].(map[string]interface{})["type"])
	require.Equal(t, "data:image/png;base64,BBBB", parts[2].(map[string]interface{})["image_url"].(map[string]interface{})["url"])
}

func TestGatewayExtractTextRequiresImages(t *testing.T) {
	gateway, recorder := newTestGateway(t, func(w http.ResponseWriter, _ map[string]interface{}) {
		writeCompletion(w, map[string]interface{}{"role": "assistant", "content": "unused"})
	})

	_, err := gateway.ExtractText(context.Background(), OCRRequest{Instruction: AnswerSheetOCRInstruction})
	require.Error(t, err)
	require.EqualValues(t, 0, recorder.calls.Load())
}

func TestGatewayCompleteReturnsContent(t *testing.T) {
	gateway, recorder := newTestGateway(t, func(w http.ResponseWriter, _ map[string]interface{}) {
		writeCompletion(w, map[string]interface{}{"role": "assistant", "content": `{"modules": []}`})
	})

	content, err := gateway.Complete(context.Background(), CompletionRequest{System: "sys", User: "user"})
	require.NoError(t, err)
	require.Equal(t, `{"modules": []}`, content)

	messages := recorder.requests[0]["messages"].([]interface{})
	require.Len(t, messages, 2)
}
