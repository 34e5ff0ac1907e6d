package installer

import (
	"bytes"
	"encoding/json"
	"fmt"
)

func marshalJSON(v any) ([]byte, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode config: %w", err)
	}
	return append(data, '\n'), nil
}

// mergeJSON sets doc[section][ServerName] in the JSON file at path. An
// unparsable file is moved aside to <path>.bak and replaced.
func (i *Installer) mergeJSON(path, section string, block ServerBlock, typed bool) error {
	raw, err := readConfig(path)
	if err != nil {
		return err
	}

	doc := map[string]any{}
	if len(bytes.TrimSpace(raw)) > 0 {
		dec := json.NewDecoder(bytes.NewReader(raw))
		dec.UseNumber()
		if err := dec.Decode(&doc); err != nil || doc == nil {
			backup := path + ".bak"
			if werr := writeConfig(backup, raw); werr != nil {
				return werr
			}
			i.logger.Warn("Existing config is not a JSON object, replacing it",
				"path", path,
				"backup", backup)
			doc = map[string]any{}
		}
	}

	servers, ok := doc[section].(map[string]any)
	if !ok {
		servers = map[string]any{}
	}
	servers[ServerName] = jsonBlock(block, typed)
	doc[section] = servers

	data, err := marshalJSON(doc)
	if err != nil {
		return err
	}
	return writeConfig(path, data)
}

func jsonBlock(block ServerBlock, typed bool) map[string]any {
	out := map[string]any{
		"command": block.Command,
		"args":    block.Args,
	}
	if typed {
		out["type"] = "stdio"
	}
	if len(block.Env) > 0 {
		out["env"] = block.Env
	}
	return out
}
