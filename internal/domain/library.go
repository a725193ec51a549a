package domain

import (
	"context"
	"fmt"
)

// LoadLibrary assembles the working set of userID: the user row, its folder
// tree and every list placed in its library. Rows come from batch queries
// and are wrapped with FromRaw, so nothing is fetched twice.
//
// Placements pointing at a list that no longer exists are skipped. Folders
// whose parent is unknown are treated as roots; a parent cycle is an error.
func LoadLibrary(ctx context.Context, gw Gateway, userID string) (*User, error) {
	user, err := UserFromID(ctx, gw, userID)
	if err != nil {
		return nil, err
	}

	folderRecs, err := gw.QueryFolders(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load folders of user %s: %w", userID, err)
	}
	folders, err := buildFolderTree(gw, folderRecs)
	if err != nil {
		return nil, err
	}
	for _, root := range folders.roots {
		user.AddRootFolder(root)
	}

	libs, err := gw.QueryLibraryLists(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load library of user %s: %w", userID, err)
	}
	for i := range libs {
		lib := libs[i]
		rec, err := gw.RetrieveList(ctx, lib.ListID)
		if IsNotFound(err) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("load library list %s: %w", lib.ListID, err)
		}
		l, err := ListFromRaw(gw, rec, &lib)
		if err != nil {
			return nil, err
		}
		user.AddList(l)
		if lib.FolderID != nil {
			if f, ok := folders.byID[*lib.FolderID]; ok {
				f.AddList(l.ID())
			}
		}
	}
	return user, nil
}

type folderTree struct {
	roots []*Folder
	byID  map[string]*Folder
}

func buildFolderTree(gw FolderGateway, recs []FolderRecord) (folderTree, error) {
	tree := folderTree{byID: make(map[string]*Folder, len(recs))}
	ordered := make([]*Folder, 0, len(recs))
	for _, rec := range recs {
		f, err := FolderFromRaw(gw, rec)
		if err != nil {
			return tree, err
		}
		tree.byID[f.ID()] = f
		ordered = append(ordered, f)
	}

	for _, f := range ordered {
		if f.IsRoot() {
			tree.roots = append(tree.roots, f)
			continue
		}
		parent, ok := tree.byID[*f.ParentFolderID()]
		if !ok {
			tree.roots = append(tree.roots, f)
			continue
		}
		parent.AddFolder(f)
	}

	reached := 0
	var walk func(f *Folder)
	walk = func(f *Folder) {
		reached++
		for _, c := range f.children {
			walk(c)
		}
	}
	for _, root := range tree.roots {
		walk(root)
	}
	if reached != len(ordered) {
		return tree, &DecodeError{Entity: "folder", Field: "parent_folder_id", Err: fmt.Errorf("parent cycle among %d folders", len(ordered)-reached)}
	}
	return tree, nil
}
