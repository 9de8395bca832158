package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"specline/internal/app"
	"specline/internal/db"
	"specline/internal/diff"
	"specline/internal/domain"
	"specline/internal/engine"
	"specline/internal/repo"
	"specline/internal/server"
	"specline/internal/workflow"
)

var rootCmd = &cobra.Command{
	Use:   "sl",
	Short: "Specline CLI",
	Long: `Specline manages a workspace of linked documents with staged workflows.
- Documents: epics, stories, specs and notes, each with a title and body.
- Stages: idea -> draft -> review -> ready -> in_progress -> done; who may
  move a document depends on their role (pm, ta, dev, qa, stakeholder).
- Revisions: every content update archives the previous state; 'sl doc diff'
  compares any two versions line by line.
- Links: parent -> child edges form a tree of documents; cycles are rejected.
- Event log: diary of changes, view with 'sl log tail'.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		workspace := viper.GetString("workspace")
		if _, err := db.EnsureWorkspace(workspace); err != nil {
			return err
		}
		return nil
	},
}

func main() {
	cobra.OnInitialize(initConfig)
	addPersistentFlags()
	registerCommands()
	if err := rootCmd.Execute(); err != nil {
		fmt.Println("error:", err)
		os.Exit(1)
	}
}

func initConfig() {
	viper.SetEnvPrefix("SPECLINE")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func addPersistentFlags() {
	rootCmd.PersistentFlags().StringP("workspace", "w", ".", "workspace directory")
	rootCmd.PersistentFlags().Bool("json", false, "output JSON")
	rootCmd.PersistentFlags().String("actor-id", "local-user", "actor identifier")
	rootCmd.PersistentFlags().String("role", "pm", "actor role (pm, ta, dev, qa, stakeholder)")
	_ = viper.BindPFlag("workspace", rootCmd.PersistentFlags().Lookup("workspace"))
	_ = viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
	_ = viper.BindPFlag("actor-id", rootCmd.PersistentFlags().Lookup("actor-id"))
	_ = viper.BindPFlag("role", rootCmd.PersistentFlags().Lookup("role"))
}

func registerCommands() {
	rootCmd.AddCommand(initCmd())
	rootCmd.AddCommand(statusCmd())
	rootCmd.AddCommand(configCmd())
	rootCmd.AddCommand(docCmd())
	rootCmd.AddCommand(linkCmd())
	rootCmd.AddCommand(commentCmd())
	rootCmd.AddCommand(apikeyCmd())
	rootCmd.AddCommand(tokenCmd())
	rootCmd.AddCommand(logCmd())
	rootCmd.AddCommand(serveCmd())
}

func currentActor() (engine.Actor, error) {
	role := workflow.Role(strings.TrimSpace(viper.GetString("role")))
	if !workflow.ValidRole(role) {
		return engine.Actor{}, fmt.Errorf("unknown role %q; use pm, ta, dev, qa or stakeholder", role)
	}
	return engine.Actor{ID: viper.GetString("actor-id"), Role: role}, nil
}

func initCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize a workspace",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := app.InitWorkspace(viper.GetString("workspace"))
			if err != nil {
				return err
			}
			fmt.Printf("Wrote %s and created the workspace database.\n", path)
			return nil
		},
	}
	return cmd
}

func statusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show workspace status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				counts, err := e.Repo.CountDocumentsByStage(ctx)
				if err != nil {
					return err
				}
				lastEvent, err := e.Repo.LatestEventID(ctx)
				if err != nil {
					return err
				}
				out := map[string]any{
					"stage_counts":  counts,
					"last_event_id": lastEvent,
				}
				if viper.GetBool("json") {
					return printJSON(out)
				}
				fmt.Println("Documents:")
				for stage, c := range counts {
					fmt.Printf("  %s: %d\n", stage, c)
				}
				fmt.Printf("Last event id: %d\n", lastEvent)
				return nil
			})
		},
	}
	return cmd
}

func configCmd() *cobra.Command {
	cfg := &cobra.Command{
		Use:   "config",
		Short: "Inspect workspace config",
	}
	cfg.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show loaded config",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := app.ResolveConfig(viper.GetString("workspace"))
			if err != nil {
				return err
			}
			return printJSONOrTable(c)
		},
	})
	cfg.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Validate config file",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := app.ResolveConfig(viper.GetString("workspace"))
			if err == nil {
				err = c.Validate()
			}
			if viper.GetBool("json") {
				return printJSON(map[string]any{"ok": err == nil, "error": fmt.Sprint(err)})
			}
			if err != nil {
				return err
			}
			fmt.Println("config OK")
			return nil
		},
	})
	return cfg
}

func docCmd() *cobra.Command {
	doc := &cobra.Command{
		Use:   "doc",
		Short: "Manage documents",
		Long:  "Documents start at the idea stage and move through draft, review, ready, in_progress and done. Content updates bump the version and archive the previous state as a revision.",
	}
	doc.AddCommand(docCreateCmd())
	doc.AddCommand(docListCmd())
	doc.AddCommand(docShowCmd())
	doc.AddCommand(docUpdateCmd())
	doc.AddCommand(docDeleteCmd())
	doc.AddCommand(docTransitionCmd())
	doc.AddCommand(docHistoryCmd())
	doc.AddCommand(docDiffCmd())
	return doc
}

func docCreateCmd() *cobra.Command {
	var opts engine.DocumentCreateOptions
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a document",
		RunE: func(cmd *cobra.Command, args []string) error {
			actor, err := currentActor()
			if err != nil {
				return err
			}
			opts.Actor = actor
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				d, err := e.CreateDocument(ctx, opts)
				if err != nil {
					return err
				}
				return printJSONOrTable(d)
			})
		},
	}
	cmd.Flags().StringVar(&opts.ID, "id", "", "document id (optional, UUID if omitted)")
	cmd.Flags().StringVar(&opts.Title, "title", "", "title")
	cmd.Flags().StringVar(&opts.Body, "body", "", "body text")
	cmd.Flags().StringVar(&opts.Type, "type", "", "type (epic, story, spec, note)")
	_ = cmd.MarkFlagRequired("title")
	return cmd
}

func docListCmd() *cobra.Command {
	var f repo.DocumentFilters
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List documents",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				docs, err := e.Repo.ListDocuments(ctx, f)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(docs)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Title", "Type", "Stage", "Version", "Updated"})
				for _, d := range docs {
					tw.AppendRow(table.Row{d.ID, d.Title, d.Type, d.Stage, d.Version, d.UpdatedAt})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&f.Stage, "stage", "", "stage filter")
	cmd.Flags().StringVar(&f.Type, "type", "", "type filter")
	cmd.Flags().IntVar(&f.Limit, "limit", 0, "max results")
	return cmd
}

func docShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show a document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			actor, err := currentActor()
			if err != nil {
				return err
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				d, err := e.Repo.GetDocument(ctx, args[0])
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(d)
				}
				fmt.Printf("%s (%s, v%d)\n", d.Title, d.Type, d.Version)
				fmt.Printf("Stage: %s", d.Stage)
				if next := workflow.AllowedTransitions(actor.Role, workflow.Stage(d.Stage)); len(next) > 0 {
					names := make([]string, 0, len(next))
					for _, s := range next {
						names = append(names, string(s))
					}
					fmt.Printf("  (you can move it to: %s)", strings.Join(names, ", "))
				}
				fmt.Println()
				if d.Body != "" {
					fmt.Println()
					fmt.Println(d.Body)
				}
				return nil
			})
		},
	}
	return cmd
}

func docUpdateCmd() *cobra.Command {
	var title, body string
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Update document content",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			actor, err := currentActor()
			if err != nil {
				return err
			}
			opts := engine.DocumentUpdateOptions{ID: args[0], Actor: actor}
			if cmd.Flags().Changed("title") {
				opts.Title = &title
			}
			if cmd.Flags().Changed("body") {
				opts.Body = &body
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				d, err := e.UpdateDocument(ctx, opts)
				if err != nil {
					return err
				}
				return printJSONOrTable(d)
			})
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "new title")
	cmd.Flags().StringVar(&body, "body", "", "new body text")
	return cmd
}

func docDeleteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			actor, err := currentActor()
			if err != nil {
				return err
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				return e.DeleteDocument(ctx, args[0], actor)
			})
		},
	}
	return cmd
}

func docTransitionCmd() *cobra.Command {
	var stage string
	cmd := &cobra.Command{
		Use:   "transition <id>",
		Short: "Move a document to a new stage",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			actor, err := currentActor()
			if err != nil {
				return err
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				d, err := e.TransitionDocument(ctx, args[0], workflow.Stage(stage), actor)
				if err != nil {
					return err
				}
				return printJSONOrTable(d)
			})
		},
	}
	cmd.Flags().StringVar(&stage, "to", "", "target stage")
	_ = cmd.MarkFlagRequired("to")
	return cmd
}

func docHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history <id>",
		Short: "List document revisions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				d, err := e.Repo.GetDocument(ctx, args[0])
				if err != nil {
					return err
				}
				revs, err := e.Repo.ListRevisions(ctx, d.ID)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(revs)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"Version", "Title", "Stage", "Edited by", "At"})
				tw.AppendRow(table.Row{d.Version, d.Title, d.Stage, d.UpdatedBy, d.UpdatedAt + " (live)"})
				for _, r := range revs {
					tw.AppendRow(table.Row{r.Version, r.Title, r.Stage, r.EditedBy, r.CreatedAt})
				}
				tw.Render()
				return nil
			})
		},
	}
	return cmd
}

func docDiffCmd() *cobra.Command {
	var from, to int
	var sideBySide bool
	cmd := &cobra.Command{
		Use:   "diff <id>",
		Short: "Diff two versions of a document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				target := to
				if target <= 0 {
					d, err := e.Repo.GetDocument(ctx, args[0])
					if err != nil {
						return err
					}
					target = d.Version
				}
				blocks, err := e.DiffRevisions(ctx, args[0], from, target)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(blocks)
				}
				if sideBySide {
					printSideBySide(diff.SideBySide(blocks))
					return nil
				}
				for _, line := range diff.Inline(blocks) {
					fmt.Println(line)
				}
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&from, "from", 0, "old version")
	cmd.Flags().IntVar(&to, "to", 0, "new version (defaults to live)")
	cmd.Flags().BoolVar(&sideBySide, "side-by-side", false, "two-column layout")
	_ = cmd.MarkFlagRequired("from")
	return cmd
}

func printSideBySide(rows []diff.Row) {
	tw := table.NewWriter()
	tw.SetOutputMirror(os.Stdout)
	tw.AppendHeader(table.Row{"", "Old", "", "New"})
	for _, r := range rows {
		var ln, lt, rn, rt any = "", "", "", ""
		if r.Left != nil {
			ln, lt = r.Left.OldLine, r.Left.Text
		}
		if r.Right != nil {
			rn, rt = r.Right.NewLine, r.Right.Text
		}
		tw.AppendRow(table.Row{ln, lt, rn, rt})
	}
	tw.Render()
}

func linkCmd() *cobra.Command {
	link := &cobra.Command{
		Use:   "link",
		Short: "Manage document links",
		Long:  "Links are parent -> child edges. A document may have several parents, but an edge that would make a document its own ancestor is rejected.",
	}
	link.AddCommand(linkAddCmd())
	link.AddCommand(linkRmCmd())
	link.AddCommand(linkListCmd())
	link.AddCommand(linkTreeCmd())
	return link
}

func linkAddCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add <parent-id> <child-id>",
		Short: "Link a child document under a parent",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			actor, err := currentActor()
			if err != nil {
				return err
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				edge, err := e.CreateLink(ctx, args[0], args[1], actor)
				if err != nil {
					return err
				}
				return printJSONOrTable(edge)
			})
		},
	}
	return cmd
}

func linkRmCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rm <parent-id> <child-id>",
		Short: "Remove a link",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			actor, err := currentActor()
			if err != nil {
				return err
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				removed, err := e.DeleteLink(ctx, args[0], args[1], actor)
				if err != nil {
					return err
				}
				if !removed {
					return fmt.Errorf("link %s -> %s not found", args[0], args[1])
				}
				return nil
			})
		},
	}
	return cmd
}

func linkListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list <id>",
		Short: "List edges touching a document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				if _, err := e.Repo.GetDocument(ctx, args[0]); err != nil {
					return err
				}
				edges, err := e.Repo.ListLinks(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSONOrTable(edges)
			})
		},
	}
	return cmd
}

func linkTreeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tree <id>",
		Short: "Show the subtree rooted at a document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				node, err := e.Tree(ctx, args[0])
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(node)
				}
				printDocTree(node, "", true)
				return nil
			})
		},
	}
	return cmd
}

func commentCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "comment",
		Short: "Comment on documents",
	}
	addCmd := &cobra.Command{
		Use:   "add <id>",
		Short: "Add a comment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			body, _ := cmd.Flags().GetString("body")
			actor, err := currentActor()
			if err != nil {
				return err
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				res, err := e.AddComment(ctx, args[0], body, actor)
				if err != nil {
					return err
				}
				return printJSONOrTable(res)
			})
		},
	}
	addCmd.Flags().String("body", "", "comment text")
	_ = addCmd.MarkFlagRequired("body")
	listCmd := &cobra.Command{
		Use:   "list <id>",
		Short: "List comments",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				if _, err := e.Repo.GetDocument(ctx, args[0]); err != nil {
					return err
				}
				items, err := e.Repo.ListComments(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSONOrTable(items)
			})
		},
	}
	c.AddCommand(addCmd)
	c.AddCommand(listCmd)
	return c
}

func apikeyCmd() *cobra.Command {
	k := &cobra.Command{
		Use:   "apikey",
		Short: "Manage API keys",
	}
	k.AddCommand(apikeyCreateCmd())
	k.AddCommand(apikeyListCmd())
	k.AddCommand(apikeyRmCmd())
	return k
}

func apikeyCreateCmd() *cobra.Command {
	var actorID, role, name string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an API key",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				key, plaintext, err := e.CreateAPIKey(ctx, actorID, workflow.Role(role), name)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(map[string]any{"key": plaintext, "id": key.ID, "actor_id": key.ActorID, "role": key.Role})
				}
				fmt.Printf("API key for %s (%s): %s\n", key.ActorID, key.Role, plaintext)
				fmt.Println("Store it now; only the hash is kept.")
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&actorID, "actor", "", "actor id the key authenticates as")
	cmd.Flags().StringVar(&role, "key-role", "", "role the key carries")
	cmd.Flags().StringVar(&name, "name", "", "key label")
	_ = cmd.MarkFlagRequired("actor")
	_ = cmd.MarkFlagRequired("key-role")
	return cmd
}

func apikeyListCmd() *cobra.Command {
	var actorID string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List API keys",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				keys, err := e.Repo.ListAPIKeys(ctx, actorID)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(keys)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Actor", "Role", "Name", "Created"})
				for _, key := range keys {
					tw.AppendRow(table.Row{key.ID, key.ActorID, key.Role, key.Name, key.CreatedAt})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&actorID, "actor", "", "filter by actor id")
	return cmd
}

func apikeyRmCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rm <id>",
		Short: "Delete an API key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				return e.Repo.DeleteAPIKey(ctx, args[0])
			})
		},
	}
	return cmd
}

func tokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a bearer token for the current actor",
		RunE: func(cmd *cobra.Command, args []string) error {
			actor, err := currentActor()
			if err != nil {
				return err
			}
			cfg, err := app.ResolveConfig(viper.GetString("workspace"))
			if err != nil {
				return err
			}
			token, err := server.MintToken(cfg.Auth.JWTSecret, actor.ID, actor.Role)
			if err != nil {
				return err
			}
			if viper.GetBool("json") {
				return printJSON(map[string]string{"token": token})
			}
			fmt.Println(token)
			return nil
		},
	}
	return cmd
}

func logCmd() *cobra.Command {
	log := &cobra.Command{
		Use:   "log",
		Short: "Event log",
	}
	log.AddCommand(logTailCmd())
	return log
}

func logTailCmd() *cobra.Command {
	var n int
	var evtType, entityKind, entityID string
	cmd := &cobra.Command{
		Use:   "tail",
		Short: "Tail events",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				events, err := e.Repo.LatestEventsFrom(ctx, n, 0, evtType, entityKind, entityID)
				if err != nil {
					return err
				}
				return printJSONOrTable(events)
			})
		},
	}
	cmd.Flags().IntVar(&n, "n", 20, "number of events")
	cmd.Flags().StringVar(&evtType, "type", "", "event type filter")
	cmd.Flags().StringVar(&entityKind, "entity-kind", "", "entity kind")
	cmd.Flags().StringVar(&entityID, "entity-id", "", "entity id")
	return cmd
}

func serveCmd() *cobra.Command {
	var addr, basePath string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			workspace := viper.GetString("workspace")
			cfg, err := app.ResolveConfig(workspace)
			if err != nil {
				return err
			}
			if addr == "" {
				addr = cfg.Server.Addr
			}
			if basePath == "" {
				basePath = cfg.Server.BasePath
			}
			if cfg.Auth.JWTSecret == "" && !cfg.Auth.AllowLegacyActorHeader {
				return fmt.Errorf("auth.jwt_secret (or SPECLINE_JWT_SECRET) is required for bearer auth")
			}
			conn, e, err := app.NewEngine(workspace)
			if err != nil {
				return err
			}
			defer conn.Close()
			handler, err := server.New(server.Config{
				Engine:   e,
				BasePath: basePath,
				Auth: server.AuthConfig{
					JWTSecret:              cfg.Auth.JWTSecret,
					AllowLegacyActorHeader: cfg.Auth.AllowLegacyActorHeader,
				},
			})
			if err != nil {
				return err
			}
			srv := &http.Server{Addr: addr, Handler: handler}
			go func() {
				<-cmd.Context().Done()
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				srv.Shutdown(ctx)
			}()
			fmt.Printf("Serving Specline API on http://%s%s (OpenAPI at %s/openapi.json, Swagger UI at /docs)\n", addr, basePath, basePath)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (defaults to config)")
	cmd.Flags().StringVar(&basePath, "base-path", "", "API base path (defaults to config)")
	return cmd
}

// --- helpers ---

func withEngine(ctx context.Context, fn func(context.Context, engine.Engine) error) error {
	conn, e, err := app.NewEngine(viper.GetString("workspace"))
	if err != nil {
		return err
	}
	defer conn.Close()
	return fn(ctx, e)
}

func printJSONOrTable(v any) error {
	if viper.GetBool("json") {
		return printJSON(v)
	}
	b, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(b))
	return nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printDocTree(node *domain.TreeNode, prefix string, last bool) {
	connector := "├── "
	newPrefix := prefix + "│   "
	if last {
		connector = "└── "
		newPrefix = prefix + "    "
	}
	if prefix == "" && last {
		fmt.Printf("%s [%s, %s]\n", node.Title, node.Type, node.Stage)
		newPrefix = ""
	} else {
		fmt.Printf("%s%s%s [%s, %s]\n", prefix, connector, node.Title, node.Type, node.Stage)
	}
	for i, c := range node.Children {
		printDocTree(c, newPrefix, i == len(node.Children)-1)
	}
}
