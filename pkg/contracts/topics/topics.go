package topics

const (
	// Concursos
	ContestsDrawn = "megasena_contests"

	// DLQs
	ContestsDrawnDLQ = "megasena_contests_dlq"
)
