package console

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/zeusync/scenekit/internal/app"
	"github.com/zeusync/scenekit/internal/core/convert"
	"github.com/zeusync/scenekit/internal/core/dynamic"
	"github.com/zeusync/scenekit/internal/core/models"
	"github.com/zeusync/scenekit/internal/core/schema"
	"github.com/zeusync/scenekit/internal/scene"
)

func (c *Console) standardCommands() []Command {
	return []Command{
		{Name: "help", Description: "list the commands", Handler: c.help},
		{Name: "newscene", Description: "create an empty scene and make it the target", Handler: newScene},
		{Name: "listscenes", Description: "list the loaded scenes (* marks the target)", Handler: listScenes},
		{Name: "savescene", Description: "save the target scene", Handler: saveScene},
		{Name: "loadscene", Description: "load a scene document and make it the target", Handler: loadScene},
		{Name: "unloadscene", Description: "despawn the target scene without saving", Handler: unloadScene},
		{Name: "reloadscene", Description: "discard the target scene and load it again from its save path", Handler: reloadScene},
		{Name: "changescene", Description: "pick the target scene", Handler: changeScene},
		{Name: "newentity", Description: "spawn a named entity in the target scene", Handler: newEntity},
		{Name: "listentities", Description: "list the entities of the target scene", Handler: listEntities},
		{Name: "scoopentities", Description: "add every entity without a scene to the target scene", Handler: scoopEntities},
		{Name: "addcomponent", Description: "add or edit a component of an entity in the target scene", Handler: addComponent},
		{Name: "listcomponents", Description: "list the registered component types", Handler: listComponents},
		{Name: "crash", Description: "terminate immediately with status 1, without saving", Handler: c.crash},
	}
}

func (c *Console) crash(_ context.Context, _ *app.Root, p *Prompter) error {
	p.Println("crashing without saving")
	c.exit(1)
	return nil
}

func newScene(_ context.Context, root *app.Root, p *Prompter) error {
	name, err := p.Text("scene name")
	if err != nil {
		return err
	}
	id, err := root.Scenes.NewScene(name)
	if err != nil {
		return err
	}
	p.Printf("created scene %q (id %s)\n", strings.TrimSpace(name), id)
	return nil
}

func listScenes(_ context.Context, root *app.Root, p *Prompter) error {
	scenes := root.Scenes.Scenes()
	if len(scenes) == 0 {
		p.Println("no scenes loaded")
		return nil
	}
	for _, s := range scenes {
		marker := " "
		if s.Target {
			marker = "*"
		}
		path := s.SavePath
		if path == "" {
			path = "unsaved"
		}
		p.Printf("%s %s (id %s, %d entities, cache %s, %s)\n", marker, s.Name, s.ID, s.Members, s.Cache, path)
	}
	return nil
}

func saveScene(ctx context.Context, root *app.Root, p *Prompter) error {
	askPath := func(name string) (string, error) {
		fallback := scene.DefaultPath(name)
		path, err := p.Text(fmt.Sprintf("save %q as [%s]", name, fallback))
		if err != nil {
			return "", err
		}
		if path == "" {
			return fallback, nil
		}
		return path, nil
	}

	if err := root.Scenes.SaveScene(ctx, scene.WithPathPrompt(askPath)); err != nil {
		return err
	}
	id, _ := root.Scenes.Target()
	if sc, ok := root.Scenes.Scene(id); ok {
		p.Printf("saved %q to %s\n", sc.Name, sc.SavePath)
	}
	return nil
}

func loadScene(ctx context.Context, root *app.Root, p *Prompter) error {
	keys, err := root.Storage.List(ctx, "")
	if err != nil {
		return err
	}
	keys = slices.DeleteFunc(keys, func(k string) bool { return !strings.HasSuffix(k, scene.DocumentSuffix) })
	if len(keys) > 0 {
		p.Printf("stored scenes: %s\n", strings.Join(keys, ", "))
	}

	path, err := p.Text("scene path")
	if err != nil {
		return err
	}
	if path == "" {
		return fmt.Errorf("%w: empty path", scene.ErrInput)
	}

	id, err := root.Scenes.LoadScene(ctx, path)
	if err != nil {
		return err
	}
	sc, _ := root.Scenes.Scene(id)
	p.Printf("loaded %q with %d entities\n", sc.Name, len(sc.Members))
	return nil
}

func unloadScene(_ context.Context, root *app.Root, p *Prompter) error {
	sc, err := targetScene(root)
	if err != nil {
		return err
	}
	ok, err := p.Confirm(fmt.Sprintf("unload %q without saving?", sc.Name))
	if err != nil || !ok {
		return err
	}
	if err = root.Scenes.UnloadScene(); err != nil {
		return err
	}
	p.Printf("unloaded %q\n", sc.Name)
	return nil
}

func reloadScene(ctx context.Context, root *app.Root, p *Prompter) error {
	sc, err := targetScene(root)
	if err != nil {
		return err
	}
	ok, err := p.Confirm(fmt.Sprintf("discard unsaved changes to %q?", sc.Name))
	if err != nil || !ok {
		return err
	}
	if _, err = root.Scenes.ReloadScene(ctx); err != nil {
		return err
	}
	p.Printf("reloaded %q from %s\n", sc.Name, sc.SavePath)
	return nil
}

func changeScene(_ context.Context, root *app.Root, p *Prompter) error {
	scenes := root.Scenes.Scenes()
	if len(scenes) == 0 {
		return fmt.Errorf("%w: no scenes loaded", scene.ErrInput)
	}
	names := make([]string, len(scenes))
	for i, s := range scenes {
		names[i] = s.Name
	}

	i, err := p.Choice("target scene", names)
	if err != nil {
		return err
	}
	if err = root.Scenes.ChangeTarget(names[i]); err != nil {
		return err
	}
	p.Printf("target is now %q\n", names[i])
	return nil
}

func newEntity(_ context.Context, root *app.Root, p *Prompter) error {
	sc, err := targetScene(root)
	if err != nil {
		return err
	}
	name, err := p.Text("entity name")
	if err != nil {
		return err
	}
	id, err := root.Scenes.CreateEntity(sc.ID, name)
	if err != nil {
		return err
	}
	label := scene.DefaultEntityName(id)
	if data, ok := scene.SceneDataOf(root.Store, id); ok {
		label = data.Name
	}
	p.Printf("spawned %q (entity %s) in %q\n", label, id, sc.Name)
	return nil
}

func listEntities(_ context.Context, root *app.Root, p *Prompter) error {
	sc, err := targetScene(root)
	if err != nil {
		return err
	}
	members, labels := memberChoices(root, sc)
	if len(members) == 0 {
		p.Printf("%q has no entities\n", sc.Name)
		return nil
	}

	for i, id := range members {
		var types []string
		for _, typ := range root.Store.Components(id) {
			if typ == scene.TypeSceneData {
				continue
			}
			label := string(typ)
			if data, ok := scene.SceneDataOf(root.Store, id); ok && !data.IsSerializable(typ) {
				label += " (not saved)"
			}
			types = append(types, label)
		}
		p.Printf("  %s [%s]\n", labels[i], strings.Join(types, ", "))
	}
	return nil
}

func scoopEntities(_ context.Context, root *app.Root, p *Prompter) error {
	sc, err := targetScene(root)
	if err != nil {
		return err
	}
	n, err := root.Scenes.ScoopEntities(sc.ID)
	if err != nil {
		return err
	}
	p.Printf("added %d entities to %q\n", n, sc.Name)
	return nil
}

func listComponents(_ context.Context, root *app.Root, p *Prompter) error {
	names := root.Registry.Components()
	if len(names) == 0 {
		p.Println("no component types registered")
		return nil
	}
	for _, name := range names {
		desc, _ := root.Registry.Resolve(name)
		p.Printf("  %s\n", desc.Canonical())
	}
	return nil
}

// addComponent asks for an entity, a component type and then its fields one
// by one. Empty answers keep the current value, or the zero value for a new
// component.
func addComponent(_ context.Context, root *app.Root, p *Prompter) error {
	sc, err := targetScene(root)
	if err != nil {
		return err
	}
	members, labels := memberChoices(root, sc)
	if len(members) == 0 {
		return fmt.Errorf("%w: %q has no entities", scene.ErrInput, sc.Name)
	}
	pick, err := p.Choice("entity", labels)
	if err != nil {
		return err
	}
	entity := members[pick]

	types := root.Registry.Components()
	typeLabels := make([]string, len(types))
	for i, typ := range types {
		typeLabels[i] = string(typ)
	}
	i, err := p.Choice("component type", typeLabels)
	if err != nil {
		return err
	}
	typ := types[i]

	conv := convert.New(root.Registry, root.Logger)
	value, err := readComponent(root, p, conv, entity, typ)
	if err != nil {
		return err
	}
	patch, err := conv.ToType(value, typ)
	if err != nil {
		return fmt.Errorf("%w: %w", scene.ErrInput, err)
	}
	if err = root.Scenes.AddComponent(entity, patch); err != nil {
		return err
	}
	p.Printf("%s on %s is now %s\n", typ, labels[pick], patch)
	return nil
}

func readComponent(root *app.Root, p *Prompter, conv *convert.Converter, entity models.EntityID, typ schema.TypeName) (dynamic.Value, error) {
	desc, err := root.Registry.Require(typ)
	if err != nil {
		return dynamic.Value{}, err
	}
	current, hasCurrent, err := currentValue(root, conv, entity, typ)
	if err != nil {
		return dynamic.Value{}, err
	}

	switch desc.Kind() {
	case schema.KindRecord, schema.KindTupleRecord:
		fields := dynamic.NewMap()
		if m := current.AsMap(); m != nil {
			for k, v := range m.All() {
				fields.Set(k, v)
			}
		} else if items := current.Items(); desc.Kind() == schema.KindTupleRecord {
			for i, f := range desc.Fields() {
				if i < len(items) {
					fields.Set(f.Name, items[i])
				}
			}
		}

		for _, f := range desc.Fields() {
			question := fmt.Sprintf("%s (%s)", f.Name, f.Type)
			if v, ok := fields.Get(f.Name); ok {
				question = fmt.Sprintf("%s (%s) [%s]", f.Name, f.Type, v)
			}
			v, ok, err := p.Value(question)
			if err != nil {
				return dynamic.Value{}, inputError(err)
			}
			if ok {
				fields.Set(f.Name, v)
			}
		}
		return dynamic.FromMap(fields), nil
	default:
		question := fmt.Sprintf("%s value (%s)", typ, desc.Canonical())
		if hasCurrent {
			question = fmt.Sprintf("%s [%s]", question, current)
		}
		v, ok, err := p.Value(question)
		if err != nil {
			return dynamic.Value{}, inputError(err)
		}
		if !ok {
			return current, nil
		}
		return v, nil
	}
}

func currentValue(root *app.Root, conv *convert.Converter, entity models.EntityID, typ schema.TypeName) (dynamic.Value, bool, error) {
	host, ok := root.Store.Get(entity, typ)
	if !ok {
		return dynamic.Null(), false, nil
	}
	ctors, ok := root.Registry.Constructors(typ)
	if !ok {
		return dynamic.Null(), false, nil
	}
	patch, err := ctors.Read(host)
	if err != nil {
		return dynamic.Value{}, false, err
	}
	v, err := conv.FromReflected(patch)
	if err != nil {
		return dynamic.Value{}, false, err
	}
	return v, true, nil
}

func inputError(err error) error {
	if err == nil || isPromptEnd(err) {
		return err
	}
	return fmt.Errorf("%w: %w", scene.ErrInput, err)
}

func isPromptEnd(err error) bool {
	return errors.Is(err, ErrAborted) || errors.Is(err, ErrInputClosed)
}

func targetScene(root *app.Root) (scene.Scene, error) {
	id, ok := root.Scenes.Target()
	if !ok {
		return scene.Scene{}, scene.ErrNoTargetScene
	}
	sc, ok := root.Scenes.Scene(id)
	if !ok {
		return scene.Scene{}, scene.ErrNoTargetScene
	}
	return sc, nil
}

// memberChoices returns the distinct members of sc with their labels.
func memberChoices(root *app.Root, sc scene.Scene) ([]models.EntityID, []string) {
	var (
		members []models.EntityID
		labels  []string
	)
	for _, id := range sc.Members {
		if slices.Contains(members, id) || !root.Store.Exists(id) {
			continue
		}
		label := scene.DefaultEntityName(id)
		if data, ok := scene.SceneDataOf(root.Store, id); ok {
			label = data.Name
		}
		members = append(members, id)
		labels = append(labels, label)
	}
	return members, labels
}
