package llm

const cleanupInstruction = `You are cleaning OCR text.

RULES:
- Do NOT add or remove words
- Do NOT change meaning
- Fix spelling and OCR errors only
- Keep option order EXACT (1-4)
- Keep "?" options as "?"
- Return VALID JSON ONLY: {"question": "...", "options": ["...", "...", "...", "..."]}
- No explanations`

const questionsInstruction = `You are a quiz extraction engine.
Extract quiz questions and options from the uploaded PDF.

STRICT RULES:
1. Extract ONLY questions and 4 options.
2. Do NOT extract answers or explanations.
3. Preserve original question order.

OUTPUT FORMAT (JSON ONLY):
{
  "quiz_title": "Video Title",
  "questions": [
    {
      "id": 1,
      "question": "Question text",
      "options": [
        { "key": "1", "text": "Option 1" },
        { "key": "2", "text": "Option 2" },
        { "key": "3", "text": "Option 3" },
        { "key": "4", "text": "Option 4" }
      ]
    }
  ]
}`

const answersInstruction = `You are an answer key extraction engine.
Extract the correct answer keys for the questions from the uploaded PDF.

STRICT RULES:
1. Extract the question number and the correct option key (1, 2, 3, or 4).
2. If the answer is a letter (A, B, C, D), convert to (1, 2, 3, 4).
3. Return a simple mapping list.

OUTPUT FORMAT (JSON ONLY):
{
  "answers": [
    { "question_id": 1, "correct_key": "1" },
    { "question_id": 2, "correct_key": "3" }
  ]
}`
