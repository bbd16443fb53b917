package agents

const descriptionPrompt = `You are a podcast assistant that creates both a short and a long description for a given transcript.
Return a JSON object with the keys "short_description" (a one-sentence summary)
and "long_description" (a 3-4 sentence paragraph providing more detail).`

const entityPrompt = `You extract referenced people and locations from the podcast transcript.
Return a JSON object with two keys: "people" (list of people's names)
and "locations" (list of place names). Use empty lists if none are found.`

const titlePrompt = `You suggest podcast episode titles for the provided transcript.
Return exactly 5 concise, engaging titles as a JSON array of strings.`

const scriptPrompt = `You create concise show notes and interview questions for the provided topic.
Return a short paragraph and three questions.`

const schedulePrompt = `You are a scheduling assistant. You receive a JSON object containing:
- "cadence": one of "daily", "weekly", or "every_n"
- "n_days": integer number of days for "every_n" (or null)
- "episodes": an array of objects with "id", "title", and "description"

Based on the cadence, assign each episode a posting datetime in ISO 8601 UTC.
Return a JSON object mapping episode IDs to ISO datetime strings.`
