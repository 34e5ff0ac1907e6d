package installer

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

const codexSection = "mcp_servers"

// mergeCodex sets [mcp_servers.telegram-mcp] in a Codex config.toml. When
// the file does not parse, the table is spliced into the text instead so
// the rest of the file survives byte for byte.
func (i *Installer) mergeCodex(path string, block ServerBlock) error {
	raw, err := readConfig(path)
	if err != nil {
		return err
	}

	doc := map[string]any{}
	if err := toml.Unmarshal(raw, &doc); err != nil {
		i.logger.Warn("Existing Codex config does not parse, merging as text",
			"path", path,
			"error", err)
		data, err := spliceCodexTable(string(raw), block)
		if err != nil {
			return err
		}
		return writeConfig(path, []byte(data))
	}

	servers, ok := doc[codexSection].(map[string]any)
	if !ok {
		servers = map[string]any{}
	}
	servers[ServerName] = block
	doc[codexSection] = servers

	data, err := toml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}
	return writeConfig(path, data)
}

func codexHeader() string {
	return "[" + codexSection + "." + ServerName + "]"
}

// codexTable renders the server table with its header.
func codexTable(block ServerBlock) (string, error) {
	body, err := toml.Marshal(block)
	if err != nil {
		return "", fmt.Errorf("failed to encode server block: %w", err)
	}
	return codexHeader() + "\n" + string(bytes.TrimRight(body, "\n")) + "\n", nil
}

// spliceCodexTable replaces an existing server table (and its subtables)
// or appends one separated by a blank line.
func spliceCodexTable(text string, block ServerBlock) (string, error) {
	table, err := codexTable(block)
	if err != nil {
		return "", err
	}

	lines := strings.SplitAfter(text, "\n")
	start := -1
	for n, line := range lines {
		if strings.TrimSpace(line) == codexHeader() {
			start = n
			break
		}
	}

	if start < 0 {
		out := strings.TrimRight(text, "\n")
		if out != "" {
			out += "\n\n"
		}
		return out + table, nil
	}

	subtable := "[" + codexSection + "." + ServerName + "."
	end := len(lines)
	for n := start + 1; n < len(lines); n++ {
		trimmed := strings.TrimSpace(lines[n])
		if strings.HasPrefix(trimmed, "[") && !strings.HasPrefix(trimmed, subtable) {
			end = n
			break
		}
	}

	var b strings.Builder
	for _, line := range lines[:start] {
		b.WriteString(line)
	}
	b.WriteString(table)
	if end < len(lines) {
		b.WriteString("\n")
		for _, line := range lines[end:] {
			b.WriteString(line)
		}
	}

	out := b.String()
	if !strings.HasSuffix(out, "\n") {
		out += "\n"
	}
	return out, nil
}
