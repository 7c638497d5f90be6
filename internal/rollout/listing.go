package rollout

import (
	"bufio"
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

// maxScannedFilesPerPage bounds how much directory-walking a single page of
// listing does, independent of how many conversations it finds.
//
// Maps to: spec §4.G listing "caps at 100 scanned files per page"
const maxScannedFilesPerPage = 100

// headRecordsToInspect is how many leading lines of a candidate file the
// scanner reads before deciding whether it looks like a real conversation.
const headRecordsToInspect = 10

// Summary is one row of a conversation listing page.
type Summary struct {
	ConversationID string
	Path           string
	StartedAt      time.Time
	Cwd            string
}

// Page is one page of a paginated conversation listing.
type Page struct {
	Items      []Summary
	NextCursor string
}

// List walks <codexHome>/sessions in descending (year, month, day, file)
// order, returning conversations whose head contains both a SessionMeta and
// a user_message within the first headRecordsToInspect lines.
//
// Maps to: spec §4.G listing
func List(codexHome string, cursor string, pageSize int) (Page, error) {
	if pageSize <= 0 {
		pageSize = 25
	}

	after, err := decodeCursor(cursor)
	if err != nil {
		return Page{}, err
	}

	files, err := sortedRolloutFiles(SessionsRoot(codexHome))
	if err != nil {
		return Page{}, err
	}

	var page Page
	scanned := 0
	for _, path := range files {
		ts, convID, ok := parseRolloutFilename(filepath.Base(path))
		if !ok {
			continue
		}
		if after != nil && !isBefore(ts, convID, *after) {
			continue
		}
		if scanned >= maxScannedFilesPerPage {
			break
		}
		scanned++

		summary, ok, err := inspectHead(path)
		if err != nil {
			return Page{}, err
		}
		if !ok {
			continue
		}
		page.Items = append(page.Items, summary)
		if len(page.Items) >= pageSize {
			page.NextCursor = encodeCursor(ts, convID)
			return page, nil
		}
	}
	return page, nil
}

// sortedRolloutFiles returns every rollout-*.jsonl path under root, sorted
// descending by path — which, given the YYYY/MM/DD/rollout-<ts>-<id>.jsonl
// layout, is equivalent to descending (timestamp, conversation_id).
func sortedRolloutFiles(root string) ([]string, error) {
	var files []string
	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return filepath.SkipDir
			}
			return err
		}
		if info.IsDir() {
			return nil
		}
		if strings.HasPrefix(info.Name(), "rollout-") && strings.HasSuffix(info.Name(), ".jsonl") {
			files = append(files, path)
		}
		return nil
	})
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("rollout: walk sessions directory: %w", err)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(files)))
	return files, nil
}

func parseRolloutFilename(name string) (ts string, conversationID string, ok bool) {
	trimmed := strings.TrimSuffix(strings.TrimPrefix(name, "rollout-"), ".jsonl")
	// filenames are rollout-<ts>-<uuid>.jsonl; the uuid itself contains
	// dashes, so split on the ts/uuid boundary: ts is fixed-width
	// (2006-01-02T15-04-05), so anything after its length is the uuid.
	const tsLen = len("2006-01-02T15-04-05")
	if len(trimmed) <= tsLen+1 {
		return "", "", false
	}
	ts = trimmed[:tsLen]
	conversationID = trimmed[tsLen+1:]
	if ts == "" || conversationID == "" {
		return "", "", false
	}
	return ts, conversationID, true
}

func inspectHead(path string) (Summary, bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return Summary{}, false, fmt.Errorf("rollout: open %s: %w", path, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	var summary Summary
	hasMeta, hasUserMessage := false, false

	for i := 0; i < headRecordsToInspect && scanner.Scan(); i++ {
		raw := scanner.Bytes()
		item := gjson.GetBytes(raw, "item")
		switch item.Get("type").String() {
		case "session_meta":
			hasMeta = true
			summary.ConversationID = item.Get("session_meta.id").String()
			summary.Cwd = item.Get("session_meta.cwd").String()
			summary.StartedAt, _ = time.Parse(time.RFC3339Nano, item.Get("session_meta.timestamp").String())
		case "response_item":
			ri := item.Get("response_item")
			if ri.Get("type").String() == "message" && ri.Get("role").String() == "user" {
				hasUserMessage = true
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return Summary{}, false, fmt.Errorf("rollout: scan %s: %w", path, err)
	}
	summary.Path = path
	return summary, hasMeta && hasUserMessage, nil
}

type cursorPos struct {
	ts     string
	convID string
}

func encodeCursor(ts, convID string) string {
	raw := ts + "|" + convID
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

func decodeCursor(cursor string) (*cursorPos, error) {
	if cursor == "" {
		return nil, nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(cursor)
	if err != nil {
		return nil, fmt.Errorf("rollout: invalid cursor: %w", err)
	}
	parts := strings.SplitN(string(raw), "|", 2)
	if len(parts) != 2 {
		return nil, fmt.Errorf("rollout: malformed cursor")
	}
	return &cursorPos{ts: parts[0], convID: parts[1]}, nil
}

// isBefore reports whether (ts, convID) sorts strictly after `after` in
// descending (timestamp_desc, conversation_id_desc) order, i.e. whether it
// belongs on the page following the cursor.
func isBefore(ts, convID string, after cursorPos) bool {
	if ts != after.ts {
		return ts < after.ts
	}
	return convID < after.convID
}
