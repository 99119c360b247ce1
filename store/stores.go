package store

import (
	"github.com/Daskott/famtree/client"
	"github.com/Daskott/famtree/server/models"
)

// Stores holds one store per famtree resource, all sharing one client.
type Stores struct {
	Families      *CrudStore[models.Family]
	Members       *CrudStore[models.Member]
	Relationships *CrudStore[models.Relationship]
	Events        *CrudStore[models.Event]
	EventMembers  *CrudStore[models.EventMember]
	FamilyMedia   *CrudStore[models.FamilyMedia]
	MemberFaces   *CrudStore[models.MemberFace]
	VoiceProfiles *CrudStore[models.VoiceProfile]
	MemoryItems   *CrudStore[models.MemoryItem]
	MemberStories *CrudStore[models.MemberStory]
	Tree          *TreeStore
}

func NewStores(c *client.Client) *Stores {
	return &Stores{
		Families:      NewCrudStore[models.Family](c.Families, "entities.family"),
		Members:       NewCrudStore[models.Member](c.Members, "entities.member"),
		Relationships: NewCrudStore[models.Relationship](c.Relationships, "entities.relationship"),
		Events:        NewCrudStore[models.Event](c.Events, "entities.event"),
		EventMembers:  NewCrudStore[models.EventMember](c.EventMembers, "entities.event_member"),
		FamilyMedia:   NewCrudStore[models.FamilyMedia](c.FamilyMedia, "entities.family_media"),
		MemberFaces:   NewCrudStore[models.MemberFace](c.MemberFaces, "entities.member_face"),
		VoiceProfiles: NewCrudStore[models.VoiceProfile](c.VoiceProfiles, "entities.voice_profile"),
		MemoryItems:   NewCrudStore[models.MemoryItem](c.MemoryItems, "entities.memory_item"),
		MemberStories: NewCrudStore[models.MemberStory](c.MemberStories, "entities.member_story"),
		Tree:          NewTreeStore(c.Families),
	}
}
