package action

import "fmt"

const intentSchema = `{
	"type": "object",
	"properties": {
		"action_required": {"type": "boolean"}
	},
	"required": ["action_required"],
	"additionalProperties": false
}`

const outputSchema = `{
	"type": "object",
	"properties": {
		"output": {"type": "string"}
	},
	"required": ["output"],
	"additionalProperties": false
}`

func intentPrompt(text string) string {
	return fmt.Sprintf(`You are an AI assistant. Your task is to analyze if the following text contains a request for an action or text generation.

Actions include but are not limited to:
- Generating or creating new text/content
- Modifying existing text/content
- Performing calculations
- Executing commands or operations
- Requests for the AI to "do" something

Text to analyze: %q

Set action_required to:
- true if the text contains a request for any kind of action
- false if the text is just a statement, question, or doesn't request any action`, text)
}

func generatePrompt(target, text string) string {
	return fmt.Sprintf(`You are a helpful assistant that generates content based on voice input.
The following is a voice input recorded in %s:

%q

Instructions:
1. Interpret the input as an instruction and generate appropriate content
2. Even if the instruction is indirect or implicit, create relevant content
3. Format the output appropriately for %s:
   - For email app: Generate professional email content
   - For notes app: Create structured, detailed notes
   - For messaging app: Generate conversational messages
   - For document app: Create well-formatted document content
4. Maintain consistent tone and style suitable for %s
5. Always provide meaningful, contextual content

Generate the content without any explanations or meta-commentary.`, target, text, target, target)
}

func transformPrompt(target, text string) string {
	return fmt.Sprintf(`You are a helpful assistant that processes voice input for %s.
The following is a voice input recorded in %s:

%q

Instructions:
1. Fix any grammar or transcription errors in the text
2. Format the text appropriately for %s usage
3. Maintain the original meaning and intent
4. Clean up the text while keeping it natural for the context

Provide only the corrected and contextually formatted text without any explanations or meta-commentary.`, target, target, text, target)
}

func withSchema(prompt, schema string) string {
	return prompt + "\nPlease provide the response as JSON matching this schema:\n" + schema
}
