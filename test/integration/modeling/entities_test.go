// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Flimey Contributors

//go:build integration

package modeling_test

import (
	"context"

	"github.com/oklog/ulid/v2"
	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention

	"github.com/EdgarDorausch/flimey-core/internal/modeling"
)

var _ = Describe("Entity lifecycle", func() {
	var ctx context.Context

	BeforeEach(func() {
		ctx = context.Background()
		resetModel(ctx, env.pool)
	})

	ownedBy := func(groups ...string) modeling.ViewerInput {
		return modeling.ViewerInput{Maintainers: groups}
	}

	Describe("Creation", func() {
		It("derives properties positionally with default fallback", func() {
			_, versionID := newActiveType(ctx, "Laptop", modeling.KindAsset, [][3]string{
				{"has_property", "serial", "text"},
				{"has_property", "price", "number"},
				{"must_be_defined", "price", "0"},
			})

			created, err := env.Entities.CreateEntity(ctx, env.worker, versionID, []string{"SN-100"}, ownedBy("ops"), nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(created.State).To(Equal(modeling.StateCreated))

			view, err := env.Entities.GetEntity(ctx, env.worker, created.Ref)
			Expect(err).NotTo(HaveOccurred())
			Expect(view.Properties).To(HaveLen(2))
			Expect(view.Properties[0].Value).To(Equal("SN-100"))
			Expect(view.Properties[1].Value).To(Equal("0"))
		})

		It("rejects values that fail their declared data type", func() {
			_, versionID := newActiveType(ctx, "Laptop", modeling.KindAsset, [][3]string{
				{"has_property", "price", "number"},
			})

			_, err := env.Entities.CreateEntity(ctx, env.worker, versionID, []string{"cheap"}, ownedBy("ops"), nil)
			Expect(err).To(HaveOccurred())
		})

		It("refuses creation against an inactive type", func() {
			et, err := env.Types.CreateType(ctx, env.modeler, "Draft", modeling.KindAsset)
			Expect(err).NotTo(HaveOccurred())

			versions, err := env.Types.ListVersions(ctx, env.modeler, et.ID)
			Expect(err).NotTo(HaveOccurred())

			_, err = env.Entities.CreateEntity(ctx, env.worker, versions[0].ID, nil, ownedBy("ops"), nil)
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("Access", func() {
		It("hides entities from tickets without view access", func() {
			_, versionID := newActiveType(ctx, "Laptop", modeling.KindAsset, [][3]string{
				{"has_property", "serial", "text"},
			})

			created, err := env.Entities.CreateEntity(ctx, env.worker, versionID, []string{"SN-100"}, ownedBy("ops"), nil)
			Expect(err).NotTo(HaveOccurred())

			_, err = env.Entities.GetEntity(ctx, env.outsider, created.Ref)
			Expect(err).To(MatchError(modeling.ErrNotFound))
		})

		It("always keeps the system group as maintainer", func() {
			_, versionID := newActiveType(ctx, "Laptop", modeling.KindAsset, [][3]string{
				{"has_property", "serial", "text"},
			})

			created, err := env.Entities.CreateEntity(ctx, env.worker, versionID, []string{"SN-100"}, ownedBy("ops"), nil)
			Expect(err).NotTo(HaveOccurred())

			Expect(env.Entities.UpdateViewers(ctx, env.worker, created.Ref, modeling.ViewerInput{
				Maintainers: []string{"ops"},
				Viewers:     []string{"system"},
			})).To(Succeed())

			view, err := env.Entities.GetEntity(ctx, env.worker, created.Ref)
			Expect(err).NotTo(HaveOccurred())

			// The system group carries the zero ULID.
			role, ok := view.Viewers.Role(ulid.ULID{})
			Expect(ok).To(BeTrue())
			Expect(role).To(Equal(modeling.RoleMaintainer))
		})
	})

	Describe("Containment", func() {
		It("places subjects inside a permitted frame", func() {
			_, taskVersion := newActiveType(ctx, "Task", modeling.KindSubject, [][3]string{
				{"has_property", "title", "text"},
			})
			_, sprintVersion := newActiveType(ctx, "Sprint", modeling.KindFrame, [][3]string{
				{"can_contain", "Task", ""},
			})

			sprint, err := env.Entities.CreateEntity(ctx, env.worker, sprintVersion, nil, ownedBy("ops"), nil)
			Expect(err).NotTo(HaveOccurred())

			task, err := env.Entities.CreateEntity(ctx, env.worker, taskVersion, []string{"triage"}, ownedBy("ops"), &sprint.Ref)
			Expect(err).NotTo(HaveOccurred())
			Expect(task.ParentRef).NotTo(BeNil())
			Expect(*task.ParentRef).To(Equal(sprint.Ref))
		})

		It("refuses a subject without a container parent", func() {
			_, taskVersion := newActiveType(ctx, "Task", modeling.KindSubject, [][3]string{
				{"has_property", "title", "text"},
			})

			_, err := env.Entities.CreateEntity(ctx, env.worker, taskVersion, []string{"triage"}, ownedBy("ops"), nil)
			Expect(err).To(HaveOccurred())
		})

		It("refuses child types the container does not declare", func() {
			_, bugVersion := newActiveType(ctx, "Bug", modeling.KindSubject, [][3]string{
				{"has_property", "title", "text"},
			})
			_, sprintVersion := newActiveType(ctx, "Sprint", modeling.KindFrame, [][3]string{
				{"can_contain", "Task", ""},
			})

			sprint, err := env.Entities.CreateEntity(ctx, env.worker, sprintVersion, nil, ownedBy("ops"), nil)
			Expect(err).NotTo(HaveOccurred())

			_, err = env.Entities.CreateEntity(ctx, env.worker, bugVersion, []string{"crash"}, ownedBy("ops"), &sprint.Ref)
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("State machine", func() {
		It("walks an entity through its lifecycle", func() {
			_, versionID := newActiveType(ctx, "Laptop", modeling.KindAsset, [][3]string{
				{"has_property", "serial", "text"},
			})

			created, err := env.Entities.CreateEntity(ctx, env.worker, versionID, []string{"SN-100"}, ownedBy("ops"), nil)
			Expect(err).NotTo(HaveOccurred())

			Expect(env.Entities.ChangeState(ctx, env.worker, created.Ref, modeling.StateOpen)).To(Succeed())
			Expect(env.Entities.ChangeState(ctx, env.worker, created.Ref, modeling.StateClosedSuccess)).To(Succeed())
			Expect(env.Entities.ChangeState(ctx, env.worker, created.Ref, modeling.StateArchived)).To(Succeed())

			// Archived is terminal.
			Expect(env.Entities.ChangeState(ctx, env.worker, created.Ref, modeling.StateOpen)).NotTo(Succeed())
		})

		It("archives a frame together with its closed children", func() {
			_, taskVersion := newActiveType(ctx, "Task", modeling.KindSubject, [][3]string{
				{"has_property", "title", "text"},
			})
			_, sprintVersion := newActiveType(ctx, "Sprint", modeling.KindFrame, [][3]string{
				{"can_contain", "Task", ""},
			})

			sprint, err := env.Entities.CreateEntity(ctx, env.worker, sprintVersion, nil, ownedBy("ops"), nil)
			Expect(err).NotTo(HaveOccurred())
			task, err := env.Entities.CreateEntity(ctx, env.worker, taskVersion, []string{"triage"}, ownedBy("ops"), &sprint.Ref)
			Expect(err).NotTo(HaveOccurred())

			Expect(env.Entities.ChangeState(ctx, env.worker, task.Ref, modeling.StateOpen)).To(Succeed())
			Expect(env.Entities.ChangeState(ctx, env.worker, sprint.Ref, modeling.StateOpen)).To(Succeed())

			// An open child blocks the archive.
			Expect(env.Entities.ChangeState(ctx, env.worker, sprint.Ref, modeling.StateArchived)).NotTo(Succeed())

			Expect(env.Entities.ChangeState(ctx, env.worker, task.Ref, modeling.StateClosedFailure)).To(Succeed())
			Expect(env.Entities.ChangeState(ctx, env.worker, sprint.Ref, modeling.StateArchived)).To(Succeed())

			got, err := env.Entities.GetEntity(ctx, env.worker, task.Ref)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.Entity.State).To(Equal(modeling.StateArchived))
		})
	})

	Describe("Deletion", func() {
		It("removes a container with its children and properties", func() {
			_, taskVersion := newActiveType(ctx, "Task", modeling.KindSubject, [][3]string{
				{"has_property", "title", "text"},
			})
			_, sprintVersion := newActiveType(ctx, "Sprint", modeling.KindFrame, [][3]string{
				{"can_contain", "Task", ""},
			})

			sprint, err := env.Entities.CreateEntity(ctx, env.worker, sprintVersion, nil, ownedBy("ops"), nil)
			Expect(err).NotTo(HaveOccurred())
			task, err := env.Entities.CreateEntity(ctx, env.worker, taskVersion, []string{"triage"}, ownedBy("ops"), &sprint.Ref)
			Expect(err).NotTo(HaveOccurred())

			Expect(env.Entities.DeleteEntity(ctx, env.worker, sprint.Ref)).To(Succeed())

			_, err = env.Entities.GetEntity(ctx, env.worker, sprint.Ref)
			Expect(err).To(MatchError(modeling.ErrNotFound))
			_, err = env.Entities.GetEntity(ctx, env.worker, task.Ref)
			Expect(err).To(MatchError(modeling.ErrNotFound))
		})
	})

	Describe("Notifications", func() {
		It("feeds mutations to the audience groups", func() {
			_, versionID := newActiveType(ctx, "Laptop", modeling.KindAsset, [][3]string{
				{"has_property", "serial", "text"},
			})

			created, err := env.Entities.CreateEntity(ctx, env.worker, versionID, []string{"SN-100"}, ownedBy("ops"), nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(env.Entities.ChangeState(ctx, env.worker, created.Ref, modeling.StateOpen)).To(Succeed())

			events, err := env.News.Feed(ctx, env.worker, 10)
			Expect(err).NotTo(HaveOccurred())
			Expect(len(events)).To(BeNumerically(">=", 2))
			// Newest first.
			Expect(events[0].Kind).To(Equal(modeling.EventStateChanged))

			outsiderFeed, err := env.News.Feed(ctx, env.outsider, 10)
			Expect(err).NotTo(HaveOccurred())
			Expect(outsiderFeed).To(BeEmpty())
		})

		It("forgets an entity's history when it is deleted", func() {
			_, versionID := newActiveType(ctx, "Laptop", modeling.KindAsset, [][3]string{
				{"has_property", "serial", "text"},
			})

			created, err := env.Entities.CreateEntity(ctx, env.worker, versionID, []string{"SN-200"}, ownedBy("ops"), nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(env.Entities.ChangeState(ctx, env.worker, created.Ref, modeling.StateOpen)).To(Succeed())
			Expect(env.Entities.DeleteEntity(ctx, env.worker, created.Ref)).To(Succeed())

			events, err := env.News.Feed(ctx, env.worker, 50)
			Expect(err).NotTo(HaveOccurred())
			for _, e := range events {
				if e.TargetRef == created.Ref {
					Expect(e.Kind).To(Equal(modeling.EventDeleted), "only the deletion announcement survives")
				}
			}
		})
	})
})
