package resources

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/telegram-mcp/internal/server"
)

// ProfileURI is the resource describing the logged-in account.
const ProfileURI = "telegram://me"

// RegisterProfileResources registers the account profile resource.
func RegisterProfileResources(s *mcpserver.MCPServer, sc *server.ServerContext) error {
	profileResource := mcp.NewResource(
		ProfileURI,
		"Telegram Profile",
		mcp.WithResourceDescription("Profile of the logged-in Telegram account"),
		mcp.WithMIMEType("application/json"),
	)

	s.AddResource(profileResource, func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		return handleProfile(ctx, request, sc)
	})
	return nil
}

// handleProfile fetches the profile through the shared client.
func handleProfile(ctx context.Context, request mcp.ReadResourceRequest, sc *server.ServerContext) ([]mcp.ResourceContents, error) {
	client, err := sc.TelegramClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("telegram client unavailable: %w", err)
	}

	profile, err := client.GetMe(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}

	jsonData, err := json.MarshalIndent(profile, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal profile: %w", err)
	}

	return []mcp.ResourceContents{
		&mcp.TextResourceContents{
			URI:      request.Params.URI,
			MIMEType: "application/json",
			Text:     string(jsonData),
		},
	}, nil
}
