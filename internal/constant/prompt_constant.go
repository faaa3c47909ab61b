package constant

// Prompt templates use positional %s slots, filled in the order listed.
const (
	// question
	PromptToolUse = "[Instruction] For the given image, strictly answer the following question if only if you are confident that your answer is correct. If you are not confident about your answer (or) the image/question is beyond your understanding, reply with '[SEARCH]' to leverage external search tools.\n[Question] %s"

	// question
	PromptSearchKeywords = "[Question] %s.\n[Instruction] To help you answer this question, there is an external search tool available. However, the tool cannot understand complex queries and can only accept keywords to retrieve relevant contexts. Now, for the given Image and the corresponding Question, reply with the appropriate keywords that can retrieve the most informative contexts.  Strictly reply with NO MORE THAN FIVE keywords."

	// passage content, question
	PromptAnswerWithContext = "[Instruction] The following passage contains the response from an external search tool.\n[Search Tool Response] %s If the passage does not provide sufficient information to answer the following question, reply with [SKIP PASSAGE] to skip to the next.\n[Question] %s"

	// passage content, candidate answer
	PromptSelfCheck = "\n[Context] %s.\n[Response] %s.\n[Instruction] You need to validate if the above response is clearly and unambiguously supported by the prior context. If the response is supported by context reply with [OK]. If the response does not provide sufficient information or is not supported by the context, reply with [NOT SUPPORTED]."

	// question, numbered responses
	PromptConsistencyCheck = "[Question] %s.\n[Instruction] For the above question the following responses were supported by various contexts. You need to aggregate the information in all the following responses (strictly do not add any new information) and reply with a coherent and consistent final response. %s"
)

// Ranker query built from the question and the refined keywords.
const RankQueryFormat = "Question: %s Keywords: %s"

// Agent output lines.
const (
	NoticeLoadingImage  = "Loading new image!"
	NoticeReverseSearch = "Performing Reverse Image Search over the internet!"
	NoticeUndesired     = "^^^^ Undesired Response ^^^^"

	SkipPreviewLength = 50
)
