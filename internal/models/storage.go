package models

import "time"

type Folder struct {
	ID        int64     `json:"id"`
	ParentID  int64     `json:"parentId"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}

func (f *Folder) EntityID() int64      { return f.ID }
func (f *Folder) SetEntityID(id int64) { f.ID = id }

// File is a stored document. DataURL is opaque to the backend.
type File struct {
	ID        int64     `json:"id"`
	FolderID  int64     `json:"folderId"`
	Name      string    `json:"name"`
	MimeType  string    `json:"mimeType,omitempty"`
	Size      int64     `json:"size"`
	DataURL   string    `json:"dataUrl,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

func (f *File) EntityID() int64      { return f.ID }
func (f *File) SetEntityID(id int64) { f.ID = id }

type Message struct {
	ID        int64     `json:"id"`
	Sender    string    `json:"sender"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"createdAt"`
}

func (m *Message) EntityID() int64      { return m.ID }
func (m *Message) SetEntityID(id int64) { m.ID = id }
