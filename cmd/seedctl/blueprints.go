package main

import (
	"seedcore/pkg/fixture"
)

// The demo schema: users author posts, posts carry tags through a join table,
// comments attach polymorphically to whatever they were written on.

type userBlueprint struct{}

func (userBlueprint) Type() string { return "user" }

func (userBlueprint) Definition(d fixture.Data) fixture.Definition {
	return fixture.Definition{
		{Name: "name", Value: d.Name()},
		{Name: "email", Value: d.Email()},
		{Name: "bio", Value: d.Sentence(8)},
		{Name: "active", Value: true},
	}
}

func (userBlueprint) Relations() fixture.Relations {
	return fixture.Relations{
		"posts": fixture.HasManyRel{Target: "post", ForeignKey: "author_id"},
	}
}

type postBlueprint struct{}

func (postBlueprint) Type() string { return "post" }

func (postBlueprint) Definition(d fixture.Data) fixture.Definition {
	return fixture.Definition{
		{Name: "title", Value: d.Sentence(4)},
		{Name: "body", Value: d.Sentence(20)},
		{Name: "slug", Value: fixture.Producer(func(attrs fixture.Values) (any, error) {
			title, _ := attrs["title"].(string)
			return slugify(title), nil
		})},
		{Name: "published", Value: d.Bool()},
	}
}

func (postBlueprint) Relations() fixture.Relations {
	return fixture.Relations{
		"author":   fixture.BelongsToRel{Target: "user", ForeignKey: "author_id"},
		"tags":     fixture.BelongsToManyRel{Target: "tag", JoinTable: "post_tag"},
		"comments": fixture.HasManyRel{Target: "comment"},
	}
}

type tagBlueprint struct{}

func (tagBlueprint) Type() string { return "tag" }

func (tagBlueprint) Definition(d fixture.Data) fixture.Definition {
	return fixture.Definition{
		{Name: "name", Value: d.Word()},
		{Name: "token", Value: d.UUID()},
	}
}

type commentBlueprint struct{}

func (commentBlueprint) Type() string { return "comment" }

func (commentBlueprint) Definition(d fixture.Data) fixture.Definition {
	return fixture.Definition{
		{Name: "body", Value: d.Sentence(12)},
		{Name: "rating", Value: d.IntBetween(1, 5)},
	}
}

func (commentBlueprint) Relations() fixture.Relations {
	return fixture.Relations{
		"commentable": fixture.MorphToRel{TypeField: "commentable_type", KeyField: "commentable_id"},
	}
}

func demoRegistry(seed int64) *fixture.Registry {
	reg := fixture.NewRegistry(fixture.WithDataSource(fixture.NewData(seed)))
	reg.Register(userBlueprint{}, postBlueprint{}, tagBlueprint{}, commentBlueprint{})
	return reg
}

func slugify(s string) string {
	out := make([]rune, 0, len(s))
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9':
			out = append(out, r)
		case r >= 'A' && r <= 'Z':
			out = append(out, r+('a'-'A'))
		case r == ' ' || r == '-':
			out = append(out, '-')
		}
	}
	return string(out)
}
