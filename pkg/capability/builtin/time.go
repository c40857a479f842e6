package builtin

import (
	"context"
	"fmt"
	"time"

	"github.com/google/jsonschema-go/jsonschema"

	"github.com/papercomputeco/loom/pkg/capability"
)

// CurrentTime reports the current time in an optional IANA zone. now is the
// clock; nil means time.Now.
func CurrentTime(now func() time.Time) capability.Capability {
	if now == nil {
		now = time.Now
	}

	params := capability.ObjectSchema(map[string]*jsonschema.Schema{
		"timezone": capability.StringProp("IANA time zone name, e.g. Europe/Paris. Defaults to UTC."),
	})

	return capability.NewFunc(
		CurrentTimeName,
		"Get the current date and time.",
		params,
		func(_ context.Context, args map[string]any) (string, error) {
			loc := time.UTC
			if tz, ok := capability.StringArg(args, "timezone"); ok && tz != "" {
				l, err := time.LoadLocation(tz)
				if err != nil {
					return "", fmt.Errorf("unknown timezone %q", tz)
				}
				loc = l
			}
			return now().In(loc).Format("Monday, 2006-01-02 15:04:05 MST"), nil
		},
	)
}
