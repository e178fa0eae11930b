package plan

// classifierSystemPrompt is a fixed few-shot instruction, kept static rather
// than assembled per call, so the model classifier's behavior stays as
// deterministic as the heuristic fallback it backstops.
const classifierSystemPrompt = `You classify a user request into zero or more of these intents:
analyze, search, generate, validate, compare, predict.

Respond with a single JSON object of the shape {"intents": ["..."]} and
nothing else.

Examples:
Request: "analyze last quarter sales"
Response: {"intents":["analyze"]}

Request: "find competitors and analyze our revenue"
Response: {"intents":["search","analyze"]}

Request: "search info, write doc, check compliance"
Response: {"intents":["search","generate","validate"]}

Request: "compare our pricing to competitor X and predict next quarter"
Response: {"intents":["compare","predict"]}
`
