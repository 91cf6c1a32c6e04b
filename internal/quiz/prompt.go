package quiz

import "fmt"

func generationPrompt(sourceText string) string {
	return fmt.Sprintf(`Based on the following text, generate a 5-question quiz to test understanding.
The quiz must include 3 multiple-choice questions and 2 short-answer (open-ended) questions.
For multiple-choice questions, provide 4 options and indicate the correct answer.
For short-answer questions, provide an ideal answer for evaluation.
Provide a relevant hint for every question.

Respond ONLY with a valid JSON object following this structure, with no markdown formatting:
{
  "questions": [
    { "type": "multiple-choice", "question": "...", "options": ["...", "...", "...", "..."], "answer": "...", "hint": "..." },
    { "type": "short-answer", "question": "...", "answer": "...", "hint": "..." }
  ]
}

Source Text:
---
%s
---`, sourceText)
}

func gradingPrompt(question, idealAnswer, userAnswer string) string {
	return fmt.Sprintf(`A user was asked the following question:
'%s'

The ideal answer is:
'%s'

The user's answer was:
'%s'

Based on the ideal answer, is the user's answer correct? The user's answer should capture the main idea but does not need to be a word-for-word match.
Respond ONLY with the single word "true" if the answer is correct or "false" if it is incorrect.`, question, idealAnswer, userAnswer)
}
