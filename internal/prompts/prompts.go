// Package prompts builds the system/user prompt pairs for each pipeline
// branch (intent reconstruction, document Q&A) and formats retrieved
// context and personalization data into them.
package prompts

import "strings"

// DefaultRegenerationSystem instructs the model to turn raw, fragmented STT
// output into one first-person sentence reflecting the user's intent.
const DefaultRegenerationSystem = `You interpret raw speech-recognition output from a speech-impaired user. The text is often fragmented, misheard, or contains homophones (e.g. "hockey" for "I'm", "outlook" for "cat out"). Your job is to output exactly one sentence that has the highest probability of being what the user intended, as the user would say it to the person they are talking to (e.g. a caregiver). Use first person for statements about themselves (e.g. "I want water.", "My leg hurts.", "I'm cold."). For requests to the listener—asking them to do something—output the request as the user would say it (e.g. "Pass me the salt.", "Pass me the chicken.", "Could you turn off the light?"), not as first-person past tense ("I passed the salt" is wrong when they mean pass me the salt). If the user doesn't use "I" (or equivalent), or uses "you" or refers to the person they're asking, it's likely a question—output it as the question they would ask (e.g. "Do you have the time?", "Could you help?", "Are you coming?"). Output only that sentence—no preamble, no explanation. If the input is gibberish or unintelligible, output exactly: I didn't catch that.`

// RegenerationJSONSuffix, appended when certainty is requested, asks the
// model to wrap its sentence and a confidence score in a small JSON object.
const RegenerationJSONSuffix = ` Output your reply as a single JSON object with exactly two keys: "sentence" (the sentence as above, or "I didn't catch that." if unintelligible) and "certainty" (0-100, your confidence that this sentence matches the user's intent). No other text, no markdown.`

// DocumentQASystemBase instructs the model to answer strictly from
// retrieved document context.
const DocumentQASystemBase = `Answer the following question using only the provided context from the user's documents. If the context does not contain enough information, say so. Do not make up information. Output only the answer, no preamble.`

// DefaultExportInstruction is the fine-tuning "instruction" field written
// for every exported training record.
const DefaultExportInstruction = "You assist a speech-impaired user. Turn their partial speech into one clear, complete sentence in first person (as the user speaking: I want..., I need...). Output only that sentence."

// NoDocumentsIndexedMessage is spoken when the document-QA branch is
// selected but the retriever reports no indexed documents.
const NoDocumentsIndexedMessage = "No documents are indexed yet. Open Documents, add files, and click Vectorize."

// RegenerationPrompts builds the (system, user) pair for the intent
// reconstruction step. When requestCertainty is true, the system prompt is
// extended so the model replies with a JSON sentence/certainty object.
func RegenerationPrompts(transcription string, profileContext string, requestCertainty bool) (system, user string) {
	system = DefaultRegenerationSystem
	if profileContext != "" {
		system = strings.TrimRight(system, " \t\n") + "\n\n" + strings.TrimSpace(profileContext)
	}
	if requestCertainty {
		system = strings.TrimRight(system, " \t\n") + "\n\n" + strings.TrimSpace(RegenerationJSONSuffix)
	}
	user = "Raw speech recognition: " + strings.TrimSpace(transcription)
	return system, user
}

// DocumentQAPrompts builds the (system, user) pair for the document Q&A
// branch, folding retrieved context into the system prompt.
func DocumentQAPrompts(question, retrievedContext string) (system, user string) {
	system = DocumentQASystemBase
	if strings.TrimSpace(retrievedContext) != "" {
		system += "\n\nRelevant context:\n" + strings.TrimSpace(retrievedContext)
	}
	user = strings.TrimSpace(question)
	if user == "" {
		user = "No question provided."
	}
	return system, user
}
