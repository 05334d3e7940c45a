package engine

import "strings"

// PromptTemplate is a prompt with {name} substitution points.
type PromptTemplate struct {
	text string
}

// NewPromptTemplate creates a new PromptTemplate.
func NewPromptTemplate(text string) PromptTemplate {
	return PromptTemplate{text: text}
}

// Render substitutes every {name} occurrence with its value. Placeholders
// without a value are left in place.
func (t PromptTemplate) Render(vars map[string]string) string {
	pairs := make([]string, 0, len(vars)*2)
	for name, value := range vars {
		pairs = append(pairs, "{"+name+"}", value)
	}
	return strings.NewReplacer(pairs...).Replace(t.text)
}

// String returns the raw template text.
func (t PromptTemplate) String() string {
	return t.text
}

// DefaultTextToSQLPrompt instructs the model to produce a single SQL query
// for the question, restricted to the described tables. Substitution points:
// {dialect}, {schema}, {query_str}.
const DefaultTextToSQLPrompt = `Given an input question, first create a syntactically correct {dialect} query to run, then look at the results of the query and return the answer.
You can order the results by a relevant column to return the most interesting examples in the database.
Unless the user specifies in the question a specific number of examples to obtain, query for at most 5 results using the LIMIT clause. You can order the results to return the most informative data in the database.
Never query for all the columns from a specific table, only ask for a few relevant columns given the question.
You should use DISTINCT statements and avoid returning duplicates wherever possible.
Pay attention to use only the column names that you can see in the schema description. Be careful to not query for columns that do not exist. Pay attention to which column is in which table. Also, qualify column names with the table name when needed. You are required to use the following format, each taking one line:

Question: Question here
SQLQuery: SQL Query to run
SQLResult: Result of the SQLQuery
Answer: Final answer here

Only use tables listed below.
{schema}

Question: {query_str}
SQLQuery: `

// DefaultSynthesisPrompt asks the model to phrase an answer from the executed
// query and its result. Substitution points: {query_str}, {sql_query},
// {context_str}.
const DefaultSynthesisPrompt = `Given an input question, synthesize a response from the query results.
Query: {query_str}
SQL: {sql_query}
SQL Response: {context_str}
Response: `
