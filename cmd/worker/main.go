// Worker executable for codex-temporal-go
//
// This starts a Temporal worker that executes workflows and activities.
package main

import (
	"log"
	"os"
	"path/filepath"

	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"

	"github.com/fenrirlabs/agentcore/internal/activities"
	"github.com/fenrirlabs/agentcore/internal/llm"
	"github.com/fenrirlabs/agentcore/internal/mcp"
	"github.com/fenrirlabs/agentcore/internal/ptysession"
	"github.com/fenrirlabs/agentcore/internal/tools"
	"github.com/fenrirlabs/agentcore/internal/tools/handlers"
	"github.com/fenrirlabs/agentcore/internal/workflow"
)

const (
	TaskQueue = "codex-temporal"
)

func main() {
	// Check for OpenAI API key
	if os.Getenv("OPENAI_API_KEY") == "" {
		log.Fatal("OPENAI_API_KEY environment variable is required")
	}

	// Create Temporal client
	c, err := client.Dial(client.Options{
		HostPort: client.DefaultHostPort, // localhost:7233
	})
	if err != nil {
		log.Fatalf("Failed to create Temporal client: %v", err)
	}
	defer c.Close()

	// Create worker
	w := worker.New(c, TaskQueue, worker.Options{})

	// Register workflows
	w.RegisterWorkflow(workflow.AgenticWorkflow)
	w.RegisterWorkflow(workflow.AgenticWorkflowContinued)

	// Register the harness orchestrator alongside the per-conversation loop.
	w.RegisterWorkflow(workflow.HarnessWorkflow)
	w.RegisterWorkflow(workflow.HarnessWorkflowContinued)

	// Create tool registry with every handler actually built, so the full
	// surface advertised via buildToolSpecs is reachable at runtime.
	// Maps to: codex-rs/core/src/tools/registry.rs ToolRegistry setup
	mcpStore := mcp.NewMcpStore()
	ptyManager := ptysession.NewManager()

	toolRegistry := tools.NewToolRegistry()
	toolRegistry.Register(handlers.NewShellTool())
	toolRegistry.Register(handlers.NewReadFileTool())
	toolRegistry.Register(handlers.NewWriteFileTool())
	toolRegistry.Register(handlers.NewApplyPatchTool())
	toolRegistry.Register(handlers.NewListDirTool())
	toolRegistry.Register(handlers.NewGrepFilesTool())
	toolRegistry.Register(handlers.NewViewImageTool())
	toolRegistry.Register(handlers.NewWebSearchTool())
	toolRegistry.Register(handlers.NewUnifiedExecTool(ptyManager))
	toolRegistry.Register(handlers.NewMCPHandler(mcpStore))

	log.Printf("Registered %d tools", toolRegistry.ToolCount())

	// Create LLM client
	llmClient := llm.NewOpenAIClient()

	// Register activities
	llmActivities := activities.NewLLMActivities(llmClient)
	w.RegisterActivity(llmActivities.ExecuteLLMCall)
	w.RegisterActivity(llmActivities.ExecuteCompact)
	w.RegisterActivity(llmActivities.GenerateSuggestions)

	toolActivities := activities.NewToolActivities(toolRegistry, mcpStore)
	w.RegisterActivity(toolActivities.ExecuteTool)

	codexHome := os.Getenv("CODEX_HOME")
	if codexHome == "" {
		if home, err := os.UserHomeDir(); err == nil {
			codexHome = filepath.Join(home, ".codex")
		}
	}
	rolloutActivities := activities.NewRolloutActivities(codexHome)
	w.RegisterActivity(rolloutActivities.StartRollout)
	w.RegisterActivity(rolloutActivities.RecordItems)
	w.RegisterActivity(rolloutActivities.FlushRollout)
	w.RegisterActivity(rolloutActivities.ShutdownRollout)
	w.RegisterActivity(rolloutActivities.GetRolloutHistory)
	w.RegisterActivity(rolloutActivities.ListConversations)

	instructionActivities := activities.NewInstructionActivities()
	w.RegisterActivity(instructionActivities.LoadWorkerInstructions)
	w.RegisterActivity(instructionActivities.LoadExecPolicy)
	w.RegisterActivity(instructionActivities.LoadPersonalInstructions)

	mcpActivities := activities.NewMcpActivities(mcpStore)
	w.RegisterActivity(mcpActivities.InitializeMcpServers)
	w.RegisterActivity(mcpActivities.CleanupMcpServers)
	w.RegisterActivity(mcpActivities.LoadMcpOverlays)

	worktreeActivities := activities.NewWorktreeActivities()
	w.RegisterActivity(worktreeActivities.EnsureWorktree)
	w.RegisterActivity(worktreeActivities.RemoveWorktree)

	// Start worker
	log.Printf("Starting worker on task queue: %s", TaskQueue)
	log.Printf("Temporal server: %s", client.DefaultHostPort)

	err = w.Run(worker.InterruptCh())
	if err != nil {
		log.Fatalf("Failed to start worker: %v", err)
	}

	log.Println("Worker stopped")
}
