package builtin

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"

	"github.com/papercomputeco/loom/pkg/capability"
	"github.com/papercomputeco/loom/pkg/embeddings"
	"github.com/papercomputeco/loom/pkg/utils"
	"github.com/papercomputeco/loom/pkg/vector"
)

const (
	defaultHistoryResults = 5
	maxHistoryResults     = 20
)

// SearchHistory returns a capability doing semantic search over the calling
// user's indexed messages.
func SearchHistory(embedder embeddings.Embedder, vectors vector.Driver) capability.Capability {
	params := capability.ObjectSchema(map[string]*jsonschema.Schema{
		"query": capability.StringProp("What to look for in earlier conversations."),
		"limit": capability.IntegerProp("Maximum number of messages to return (default 5)."),
	}, "query")

	return capability.NewFunc(
		SearchHistoryName,
		"Search earlier conversations with this user for relevant messages.",
		params,
		func(ctx context.Context, args map[string]any) (string, error) {
			query, _ := capability.StringArg(args, "query")
			query = strings.TrimSpace(query)
			if query == "" {
				return "", errors.New("query is required")
			}

			inv, ok := capability.InvocationFrom(ctx)
			if !ok || inv.UserID == "" {
				return "", errors.New("history search needs the calling user")
			}

			limit := capability.IntArg(args, "limit", defaultHistoryResults)
			limit = max(1, min(limit, maxHistoryResults))

			emb, err := embedder.Embed(ctx, query)
			if err != nil {
				return "", fmt.Errorf("embedding query: %w", err)
			}

			results, err := vectors.Query(ctx, emb, vector.QueryOptions{TopK: limit, UserID: inv.UserID})
			if err != nil {
				return "", fmt.Errorf("searching history: %w", err)
			}

			if len(results) == 0 {
				return "no matching messages found", nil
			}

			var sb strings.Builder
			for i, r := range results {
				fmt.Fprintf(&sb, "%d. [%s] %s (score %.2f)\n", i+1, r.Role, utils.Truncate(r.Content, 400), r.Score)
			}
			return strings.TrimRight(sb.String(), "\n"), nil
		},
	)
}
