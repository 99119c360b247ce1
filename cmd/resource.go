package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/Daskott/famtree/client"
	"github.com/Daskott/famtree/server/models"
	"github.com/Daskott/famtree/store"
	"github.com/spf13/cobra"
)

type listOutput[T any] struct {
	Items      []T   `json:"items"`
	TotalItems int64 `json:"total_items"`
	TotalPages int64 `json:"total_pages"`
	Page       int   `json:"page"`
}

func createResourceCmds() []*cobra.Command {
	media := resourceCmd("family-media", func(s *store.Stores) *store.CrudStore[models.FamilyMedia] { return s.FamilyMedia })
	media.AddCommand(createMediaUploadCmd(), createMediaContentCmd())

	return []*cobra.Command{
		resourceCmd("families", func(s *store.Stores) *store.CrudStore[models.Family] { return s.Families }),
		resourceCmd("members", func(s *store.Stores) *store.CrudStore[models.Member] { return s.Members }),
		resourceCmd("relationships", func(s *store.Stores) *store.CrudStore[models.Relationship] { return s.Relationships }),
		resourceCmd("events", func(s *store.Stores) *store.CrudStore[models.Event] { return s.Events }),
		resourceCmd("event-members", func(s *store.Stores) *store.CrudStore[models.EventMember] { return s.EventMembers }),
		media,
		resourceCmd("member-faces", func(s *store.Stores) *store.CrudStore[models.MemberFace] { return s.MemberFaces }),
		resourceCmd("voice-profiles", func(s *store.Stores) *store.CrudStore[models.VoiceProfile] { return s.VoiceProfiles }),
		resourceCmd("memory-items", func(s *store.Stores) *store.CrudStore[models.MemoryItem] { return s.MemoryItems }),
		resourceCmd("member-stories", func(s *store.Stores) *store.CrudStore[models.MemberStory] { return s.MemberStories }),
	}
}

// resourceCmd builds list/get/add/update/delete subcommands over the store
// picked by selectStore.
func resourceCmd[T any](use string, selectStore func(*store.Stores) *store.CrudStore[T]) *cobra.Command {
	cmd := &cobra.Command{
		Use:   use,
		Short: fmt.Sprintf("List, show, add, update or delete %s", use),
	}

	var (
		opts    = models.ListOptions{}
		filters map[string]string
	)

	listCmd := &cobra.Command{
		Use:   "list",
		Short: fmt.Sprintf("List %s", use),
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s := selectStore(newStores())
			opts.Filters = filters

			if err := s.SetListOptions(commandContext(cmd), opts); err != nil {
				return storeError(s.State().Error)
			}

			state := s.State()
			return printJSON(cmd, listOutput[T]{
				Items:      state.Items,
				TotalItems: state.TotalItems,
				TotalPages: state.TotalPages,
				Page:       state.Options.Page,
			})
		},
	}
	listCmd.Flags().IntVarP(&opts.Page, "page", "p", 1, "page to show")
	listCmd.Flags().IntVar(&opts.ItemsPerPage, "per-page", models.DEFAULT_PAGE_SIZE, "items per page")
	listCmd.Flags().StringVar(&opts.SortBy, "sort", "", "sort columns e.g. 'last_name:asc,first_name'")
	listCmd.Flags().StringVarP(&opts.Search, "search", "s", "", "text to search for")
	listCmd.Flags().StringToStringVarP(&filters, "filter", "f", nil, "column=value filters e.g. 'family_id=1'")

	getCmd := &cobra.Command{
		Use:   "get <id>",
		Short: fmt.Sprintf("Show one of %s", use),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			s := selectStore(newStores())
			item, err := s.GetByID(commandContext(cmd), id)
			if err != nil {
				return storeError(s.State().Error)
			}
			return printJSON(cmd, item)
		},
	}

	var payload payloadFlags

	addCmd := &cobra.Command{
		Use:   "add",
		Short: fmt.Sprintf("Add to %s from a JSON document", use),
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			item := new(T)
			if err := payload.decode(cmd, item); err != nil {
				return err
			}

			s := selectStore(newStores())
			created, err := s.AddItem(commandContext(cmd), item)
			if created == nil {
				return storeError(s.State().Error)
			}
			if err != nil {
				cmd.Printf("%s %s\n", warningLabel, s.State().Error)
			}
			return printJSON(cmd, created)
		},
	}
	payload.register(addCmd)

	updateCmd := &cobra.Command{
		Use:   "update <id>",
		Short: fmt.Sprintf("Replace the editable fields of one of %s", use),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			item := new(T)
			if err := payload.decode(cmd, item); err != nil {
				return err
			}

			s := selectStore(newStores())
			updated, err := s.UpdateItem(commandContext(cmd), id, item)
			if updated == nil {
				return storeError(s.State().Error)
			}
			if err != nil {
				cmd.Printf("%s %s\n", warningLabel, s.State().Error)
			}
			return printJSON(cmd, updated)
		},
	}
	payload.register(updateCmd)

	deleteCmd := &cobra.Command{
		Use:   "delete <id>",
		Short: fmt.Sprintf("Delete one of %s", use),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			s := selectStore(newStores())
			if err = s.DeleteItem(commandContext(cmd), id); err != nil {
				return storeError(s.State().Error)
			}

			cmd.Printf("deleted %s %d\n", use, id)
			return nil
		},
	}

	cmd.AddCommand(listCmd, getCmd, addCmd, updateCmd, deleteCmd)
	return cmd
}

func createMediaUploadCmd() *cobra.Command {
	var (
		familyID    uint
		description string
	)

	cmd := &cobra.Command{
		Use:   "upload <file>",
		Short: "Upload a photo, video, audio or document file to a family",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			file, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer file.Close()

			media, err := newClient().FamilyMedia.Upload(commandContext(cmd), familyID, filepath.Base(args[0]), description, file)
			if err != nil {
				return storeError(store.ErrorMessage("entities.family_media", store.ADD_ACTION, err))
			}
			return printJSON(cmd, media)
		},
	}

	cmd.Flags().UintVar(&familyID, "family", 0, "id of the family the file belongs to")
	cmd.Flags().StringVarP(&description, "description", "d", "", "description of the file")
	cmd.MarkFlagRequired("family")

	return cmd
}

func createMediaContentCmd() *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "content <id>",
		Short: "Download the stored file of a family media record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			content, err := newClient().FamilyMedia.Content(commandContext(cmd), id)
			if err != nil {
				return storeError(store.ErrorMessage("entities.family_media", store.GET_ACTION, err))
			}
			defer content.Close()

			var w io.Writer = cmd.OutOrStdout()
			if out != "" {
				file, err := os.Create(out)
				if err != nil {
					return err
				}
				defer file.Close()
				w = file
			}

			_, err = io.Copy(w, content)
			return err
		},
	}

	cmd.Flags().StringVarP(&out, "out", "o", "", "file to write to (default is stdout)")

	return cmd
}

// ---------------------------------------------------------------------------------//
// Helper functions
// --------------------------------------------------------------------------------//

// payloadFlags reads a JSON document from --data or --file ("-" is stdin).
type payloadFlags struct {
	data string
	file string
}

func (p *payloadFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&p.data, "data", "", "JSON document")
	cmd.Flags().StringVar(&p.file, "file", "", "file holding the JSON document, '-' for stdin")
}

func (p *payloadFlags) decode(cmd *cobra.Command, v interface{}) error {
	var r io.Reader

	switch {
	case p.data != "":
		r = strings.NewReader(p.data)
	case p.file == "-":
		r = cmd.InOrStdin()
	case p.file != "":
		file, err := os.Open(p.file)
		if err != nil {
			return err
		}
		defer file.Close()
		r = file
	default:
		return formattedError("one of --data or --file is required")
	}

	if err := json.NewDecoder(r).Decode(v); err != nil {
		return formattedError("invalid JSON document: %v", err)
	}
	return nil
}

func newClient() *client.Client {
	return client.New(
		config.GetString("api.url"),
		client.WithToken(config.GetString("api.token")),
		client.WithLanguage(config.GetString("language")),
	)
}

func newStores() *store.Stores {
	return store.NewStores(newClient())
}

func parseID(arg string) (uint, error) {
	id, err := strconv.ParseUint(arg, 10, 64)
	if err != nil || id == 0 {
		return 0, formattedError("invalid id %q, must be a positive number", arg)
	}
	return uint(id), nil
}

func printJSON(cmd *cobra.Command, v interface{}) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}

	cmd.Println(string(b))
	return nil
}

func storeError(message string) error {
	return formattedError("%s", message)
}

// commandContext falls back to context.Background for commands run without one.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
