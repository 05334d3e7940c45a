package engine

import "strings"

// ExtractSQL pulls the SQL query out of a model response. The prompt asks for
// a "SQLQuery:" line, but models also answer with fenced code blocks or bare
// SQL, so all three shapes are handled. Returns "" when no SQL is found.
func ExtractSQL(response string) string {
	response = strings.TrimSpace(response)

	// Preferred shape: the SQLQuery:/SQLResult: format the prompt requests.
	if idx := strings.Index(response, "SQLQuery:"); idx != -1 {
		sql := response[idx+len("SQLQuery:"):]
		for _, stop := range []string{"SQLResult:", "\nQuestion:", "\nAnswer:"} {
			if end := strings.Index(sql, stop); end != -1 {
				sql = sql[:end]
			}
		}
		if cleaned := cleanSQL(sql); cleaned != "" {
			return cleaned
		}
	}

	// Fenced code blocks, with or without the sql language tag.
	if sql := extractFromCodeBlock(response, "```sql"); sql != "" {
		return sql
	}
	if sql := extractFromCodeBlock(response, "```"); sql != "" && looksLikeSQL(sql) {
		return sql
	}

	// Last resort: the whole response, if it reads as SQL.
	if looksLikeSQL(response) {
		return cleanSQL(response)
	}

	return ""
}

func extractFromCodeBlock(response, fence string) string {
	start := strings.Index(response, fence)
	if start == -1 {
		return ""
	}
	start += len(fence)
	end := strings.Index(response[start:], "```")
	if end == -1 {
		return ""
	}
	return cleanSQL(response[start : start+end])
}

// looksLikeSQL checks if text appears to be a SQL query.
func looksLikeSQL(text string) bool {
	upper := strings.ToUpper(strings.TrimSpace(text))
	for _, kw := range []string{"SELECT", "WITH"} {
		if strings.HasPrefix(upper, kw) {
			return true
		}
	}
	return false
}

// cleanSQL normalizes extracted SQL: trims whitespace, stray fences, and the
// trailing semicolon.
func cleanSQL(sql string) string {
	sql = strings.TrimSpace(sql)
	sql = strings.Trim(sql, "`")
	sql = strings.TrimSpace(sql)
	sql = strings.TrimSuffix(sql, ";")
	return strings.TrimSpace(sql)
}
