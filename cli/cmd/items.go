package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	calcpro "github.com/Ch4lkP0wd3r/CalcPro"
	"github.com/Ch4lkP0wd3r/CalcPro/forensic"
	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List evidence in the vault the PIN unlocks",
	RunE:  runList,
}

var addNoteCmd = &cobra.Command{
	Use:   "add-note <title> <text>",
	Short: "Add a written note to the vault the PIN unlocks",
	Args:  cobra.ExactArgs(2),
	RunE:  runAddNote,
}

var addMediaCmd = &cobra.Command{
	Use:   "add-media <file>",
	Short: "Move a captured media file into the vault the PIN unlocks",
	Long: `Moves the file into the media directory and records an evidence item
referencing it. The evidence record, not the media bytes, is encrypted.`,
	Args: cobra.ExactArgs(1),
	RunE: runAddMedia,
}

var removeCmd = &cobra.Command{
	Use:   "remove <id>",
	Short: "Remove an evidence item by id",
	RunE:  runRemove,
	Args:  cobra.ExactArgs(1),
}

var (
	mediaType  string
	mediaTitle string
	noteTags   []string
)

func init() {
	addMediaCmd.Flags().StringVar(&mediaType, "type", "photo", "media type (photo, video, audio)")
	addMediaCmd.Flags().StringVar(&mediaTitle, "title", "", "display title for the item")
	addNoteCmd.Flags().StringSliceVar(&noteTags, "tag", nil, "tags to attach to the note")

	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(addNoteCmd)
	rootCmd.AddCommand(addMediaCmd)
	rootCmd.AddCommand(removeCmd)
}

func runList(cmd *cobra.Command, args []string) error {
	session, err := unlockSession()
	if err != nil {
		return err
	}
	defer session.Lock()

	items := session.List()
	if len(items) == 0 {
		fmt.Println("Vault is empty.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTYPE\tTITLE\tCAPTURED\tCUSTODY ID")
	for _, item := range items {
		captured := time.UnixMilli(item.Timestamp).Format(time.RFC3339)
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			item.ID, item.Type, item.Title, captured, item.Metadata.ChainOfCustodyID)
	}
	return w.Flush()
}

func runAddNote(cmd *cobra.Command, args []string) error {
	session, err := unlockSession()
	if err != nil {
		return err
	}
	defer session.Lock()

	item, err := session.Add(calcpro.NewItem{
		Type:    calcpro.TypeNote,
		Title:   args[0],
		Content: args[1],
		Extras:  forensic.Extras{Tags: noteTags},
	})
	if err != nil {
		return err
	}

	fmt.Printf("Added %s (%s)\n", item.ID, item.Metadata.ChainOfCustodyID)
	return nil
}

func runAddMedia(cmd *cobra.Command, args []string) error {
	itemType := calcpro.ItemType(mediaType)
	switch itemType {
	case calcpro.TypePhoto, calcpro.TypeVideo, calcpro.TypeAudio:
	default:
		return fmt.Errorf("unsupported media type %q", mediaType)
	}

	info, err := os.Stat(args[0])
	if err != nil {
		return fmt.Errorf("cannot read media file: %w", err)
	}

	session, err := unlockSession()
	if err != nil {
		return err
	}
	defer session.Lock()

	name, err := mediaStore.Persist(args[0], mediaType)
	if err != nil {
		return err
	}

	title := mediaTitle
	if title == "" {
		title = name
	}

	item, err := session.Add(calcpro.NewItem{
		Type:    itemType,
		Title:   title,
		Content: name,
		Extras: forensic.Extras{
			Media: &forensic.MediaAttributes{FileSize: info.Size()},
		},
	})
	if err != nil {
		// The record failed to persist; drop the orphaned media file.
		_ = mediaStore.Delete(name)
		return err
	}

	fmt.Printf("Added %s (%s)\n", item.ID, item.Metadata.ChainOfCustodyID)
	return nil
}

func runRemove(cmd *cobra.Command, args []string) error {
	session, err := unlockSession()
	if err != nil {
		return err
	}
	defer session.Lock()

	removed, err := session.Remove(args[0])
	if err != nil {
		return err
	}

	// Media bytes are the caller's to clean up; the repository only
	// removed the metadata record.
	if removed.Type != calcpro.TypeNote && removed.Content != "" {
		if err := mediaStore.Delete(removed.Content); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to delete media file: %v\n", err)
		}
	}

	fmt.Printf("Removed %s\n", removed.ID)
	return nil
}
