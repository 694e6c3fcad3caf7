// Copyright 2015, David Howden
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

/*
The tag tool reads metadata from media files (as supported by the
mediatag library).
*/
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/dhowden/mediatag"
	"github.com/dhowden/mediatag/mbz"
	"github.com/dhowden/mediatag/tagmodel"
	"github.com/dhowden/mediatag/tagvalue"
)

var raw bool
var extractMBZ bool

var usage = func() {
	fmt.Fprintf(os.Stderr, "usage: %s [optional flags] filename\n", os.Args[0])
	flag.PrintDefaults()
}

func init() {
	flag.BoolVar(&raw, "raw", false, "show raw tag data")
	flag.BoolVar(&extractMBZ, "mbz", false, "extract MusicBrainz tag data (if available)")

	flag.Usage = usage
}

func main() {
	flag.Parse()

	if flag.NArg() != 1 {
		usage()
		return
	}

	fi, err := mediatag.Open(flag.Arg(0))
	if err != nil {
		fmt.Printf("error loading file: %v\n", err)
		return
	}
	defer fi.Close()

	if err := fi.ParseEverything(); err != nil {
		fmt.Printf("error reading file: %v\n", err)
		return
	}

	printSummary(fi)

	if raw {
		fmt.Println()
		fmt.Println()
		for i, t := range fi.Tags() {
			fmt.Printf("tag %d (target=%+v):\n", i, t.Target())
			printRaw(t)
		}
	}

	if extractMBZ {
		c := fi.Container()
		info := mbz.ExtractAll(c)
		b, err := json.MarshalIndent(info, "", "  ")
		if err != nil {
			fmt.Printf("error marshalling MusicBrainz info: %v\n", err)
			return
		}
		fmt.Printf("\nMusicBrainz Info:\n%v\n", string(b))
	}

	for _, d := range fi.Diagnostics() {
		fmt.Printf("[%v] %s: %s\n", d.Level, d.Context, d.Message)
	}
}

// nativeLister is implemented by every concrete tagmodel.Tag this module
// produces (tagmodel.BasicTag and its identity wrappers), letting the raw
// dump enumerate native ids without that method living on the Tag
// interface itself (most callers never need it).
type nativeLister interface {
	NativeIDs() []tagmodel.NativeID
}

func printRaw(t tagmodel.Tag) {
	nl, ok := t.(nativeLister)
	if !ok {
		fmt.Println("  (no enumerable native fields)")
		return
	}
	for _, id := range nl.NativeIDs() {
		for _, v := range t.GetNative(id) {
			fmt.Printf("  %v: %s\n", id, describeValue(v))
		}
	}
}

func describeValue(v tagvalue.Value) string {
	if v.Kind == tagvalue.PictureKind {
		return fmt.Sprintf("<picture %s, %d bytes>", v.Picture.MIME, len(v.Picture.Data))
	}
	if v.Kind == tagvalue.Binary {
		return fmt.Sprintf("<binary, %d bytes>", len(v.Binary))
	}
	s, err := v.AsText()
	if err != nil {
		return fmt.Sprintf("<%v>", v.Kind)
	}
	return s
}

func printSummary(fi *mediatag.FileInfo) {
	c := fi.Container()
	fmt.Printf("Container Format: %v\n", c.Format)
	fmt.Printf("Duration: %v\n", c.Duration)

	for i, tr := range fi.Tracks() {
		fmt.Printf("Track %d: kind=%v format=%+v language=%v\n", i, tr.Kind, tr.Format, tr.Language)
	}

	for i, t := range fi.Tags() {
		title, _ := fieldText(t, tagvalue.Title)
		artist, _ := fieldText(t, tagvalue.Artist)
		album, _ := fieldText(t, tagvalue.Album)
		fmt.Printf("Tag %d: Title=%q Artist=%q Album=%q\n", i, title, artist, album)
	}

	for i, ch := range fi.Chapters() {
		fmt.Printf("Chapter %d: %q [%v, %v]\n", i, ch.Title, ch.Start, ch.End)
	}
	for i, a := range fi.Attachments() {
		fmt.Printf("Attachment %d: %v (%v)\n", i, a.Filename, a.MIME)
	}
}

func fieldText(t tagmodel.Tag, f tagvalue.Field) (string, bool) {
	v, ok := t.GetField(f)
	if !ok {
		return "", false
	}
	s, err := v.AsText()
	if err != nil {
		return "", false
	}
	return s, true
}
