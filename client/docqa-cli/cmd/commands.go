package cmd

import (
	"fmt"
	"io"
	"net/url"
	"sort"
	"strings"

	"github.com/spf13/cobra"
)

type sessionInfo struct {
	SessionID   string `json:"session_id"`
	FileName    string `json:"file_name"`
	Format      string `json:"format"`
	Description string `json:"description"`
	ChunkCount  int    `json:"chunk_count"`
	CreatedAt   string `json:"created_at"`
}

type chunk struct {
	Index   int     `json:"index"`
	Segment int     `json:"segment"`
	Text    string  `json:"text"`
	Score   float32 `json:"score"`
}

func sessionPath(id string, suffix string) string {
	return "/api/sessions/" + url.PathEscape(id) + suffix
}

func newFormatsCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "formats",
		Short: "List the file formats the server accepts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var res struct {
				Supported    map[string]string `json:"supported"`
				Legacy       map[string]string `json:"legacy"`
				Capabilities []struct {
					Name      string `json:"name"`
					Available bool   `json:"available"`
					Reason    string `json:"reason"`
				} `json:"capabilities"`
			}
			raw, err := opts.client.getJSON(cmd.Context(), "/api/formats", &res)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if opts.json {
				return printRaw(out, raw)
			}

			fmt.Fprintln(out, "Supported formats:")
			for _, ext := range sortedKeys(res.Supported) {
				fmt.Fprintf(out, "  .%-6s %s\n", ext, res.Supported[ext])
			}
			fmt.Fprintln(out, "Not supported (convert first):")
			for _, ext := range sortedKeys(res.Legacy) {
				fmt.Fprintf(out, "  .%-6s %s\n", ext, res.Legacy[ext])
			}
			for _, c := range res.Capabilities {
				if !c.Available {
					fmt.Fprintf(out, "Unavailable on this server: %s (%s)\n", c.Name, c.Reason)
				}
			}
			return nil
		},
	}
}

func newUploadCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "upload [file-path]",
		Short: "Upload a document and start a session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var info sessionInfo
			raw, err := opts.client.upload(cmd.Context(), "/api/upload", args[0], &info)
			if err != nil {
				return err
			}
			if opts.json {
				return printRaw(cmd.OutOrStdout(), raw)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Session %s: %s (%s), %d chunks\n",
				info.SessionID, info.FileName, info.Description, info.ChunkCount)
			return nil
		},
	}
}

func newAskCmd(opts *options) *cobra.Command {
	var showSources bool
	cmd := &cobra.Command{
		Use:   "ask [session-id] [question...]",
		Short: "Ask a question about an uploaded document",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var res struct {
				Answer     string `json:"answer"`
				OutOfScope bool   `json:"out_of_scope"`
				Strategy   string `json:"strategy"`
				Sources    []struct {
					Index   int     `json:"index"`
					Score   float32 `json:"score"`
					Preview string  `json:"preview"`
				} `json:"sources"`
			}
			req := map[string]string{"question": strings.Join(args[1:], " ")}
			raw, err := opts.client.postJSON(cmd.Context(), sessionPath(args[0], "/chat"), req, &res)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if opts.json {
				return printRaw(out, raw)
			}

			fmt.Fprintln(out, res.Answer)
			if showSources && len(res.Sources) > 0 {
				fmt.Fprintf(out, "\nSources (%s):\n", res.Strategy)
				for _, s := range res.Sources {
					fmt.Fprintf(out, "  [%d] %.3f %s\n", s.Index, s.Score, oneLine(s.Preview))
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&showSources, "sources", false, "print the chunks the answer was built from")
	return cmd
}

func newSearchCmd(opts *options) *cobra.Command {
	var topK int
	cmd := &cobra.Command{
		Use:   "search [session-id] [question...]",
		Short: "Show the chunks most relevant to a question, without generating an answer",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var res struct {
				Strategy string  `json:"strategy"`
				Width    int     `json:"width"`
				Chunks   []chunk `json:"chunks"`
			}
			req := map[string]interface{}{"question": strings.Join(args[1:], " "), "top_k": topK}
			raw, err := opts.client.postJSON(cmd.Context(), sessionPath(args[0], "/search"), req, &res)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if opts.json {
				return printRaw(out, raw)
			}

			fmt.Fprintf(out, "%d chunks (%s)\n", len(res.Chunks), res.Strategy)
			for _, c := range res.Chunks {
				fmt.Fprintf(out, "--- [%d] score %.3f\n%s\n", c.Index, c.Score, c.Text)
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&topK, "top-k", "k", 0, "number of chunks; 0 lets the server decide")
	return cmd
}

func newInfoCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "info [session-id]",
		Short: "Show the document behind a session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var info sessionInfo
			raw, err := opts.client.getJSON(cmd.Context(), sessionPath(args[0], ""), &info)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if opts.json {
				return printRaw(out, raw)
			}
			fmt.Fprintf(out, "Session:  %s\nFile:     %s\nFormat:   %s (%s)\nChunks:   %d\nCreated:  %s\n",
				info.SessionID, info.FileName, info.Format, info.Description, info.ChunkCount, info.CreatedAt)
			return nil
		},
	}
}

func newDeleteCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "delete [session-id]",
		Short: "Delete a session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var res struct {
				Deleted bool `json:"deleted"`
			}
			raw, err := opts.client.delete(cmd.Context(), sessionPath(args[0], ""), &res)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if opts.json {
				return printRaw(out, raw)
			}
			if res.Deleted {
				fmt.Fprintf(out, "Deleted session %s\n", args[0])
			} else {
				fmt.Fprintf(out, "Session %s did not exist\n", args[0])
			}
			return nil
		},
	}
}

func printRaw(w io.Writer, raw []byte) error {
	_, err := fmt.Fprintln(w, strings.TrimSpace(string(raw)))
	return err
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
