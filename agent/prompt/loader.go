package prompt

import (
	_ "embed"
	"strings"
)

var (
	//go:embed template/router.txt
	routerRaw string

	//go:embed template/sql_query.txt
	sqlQueryRaw string

	//go:embed template/sql_answer.txt
	sqlAnswerRaw string

	//go:embed template/retrieval.txt
	retrievalRaw string

	//go:embed template/action_extract.txt
	actionExtractRaw string

	//go:embed template/action_summary.txt
	actionSummaryRaw string

	//go:embed template/general.txt
	generalRaw string

	//go:embed template/schema.txt
	schemaRaw string
)

// PromptSet holds loaded prompt templates. Templates use Go template syntax.
type PromptSet struct {
	Router        string
	SQLQuery      string
	SQLAnswer     string
	Retrieval     string
	ActionExtract string
	ActionSummary string
	General       string

	// Schema is the table description handed to both SQL prompts.
	Schema string
}

// LoadPromptSet returns a PromptSet with trimmed prompt strings.
func LoadPromptSet() PromptSet {
	return PromptSet{
		Router:        strings.TrimSpace(routerRaw),
		SQLQuery:      strings.TrimSpace(sqlQueryRaw),
		SQLAnswer:     strings.TrimSpace(sqlAnswerRaw),
		Retrieval:     strings.TrimSpace(retrievalRaw),
		ActionExtract: strings.TrimSpace(actionExtractRaw),
		ActionSummary: strings.TrimSpace(actionSummaryRaw),
		General:       strings.TrimSpace(generalRaw),
		Schema:        strings.TrimSpace(schemaRaw),
	}
}
