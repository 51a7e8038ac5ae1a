package runtime

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// generateRunID returns a globally unique identifier for one RunTurn
// call, prefixed with a normalized workload name for readability in
// event-bus consumers, grounded on goadesign-goa-ai's
// runtime/agent/runtime.generateRunID.
func generateRunID(workloadName string) string {
	prefix := strings.ReplaceAll(workloadName, ".", "-")
	return fmt.Sprintf("%s-%s", prefix, uuid.NewString())
}
