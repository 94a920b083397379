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

var _ = Describe("Schema management", func() {
	var ctx context.Context

	BeforeEach(func() {
		ctx = context.Background()
		resetModel(ctx, env.pool)
	})

	Describe("Entity types", func() {
		It("creates a type with an initial version", func() {
			et, err := env.Types.CreateType(ctx, env.modeler, "Laptop", modeling.KindAsset)
			Expect(err).NotTo(HaveOccurred())
			Expect(et.Active).To(BeFalse())

			versions, err := env.Types.ListVersions(ctx, env.modeler, et.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(versions).To(HaveLen(1))
			Expect(versions[0].VersionNumber).To(Equal(int64(1)))
		})

		It("rejects duplicate type names", func() {
			_, err := env.Types.CreateType(ctx, env.modeler, "Laptop", modeling.KindAsset)
			Expect(err).NotTo(HaveOccurred())

			_, err = env.Types.CreateType(ctx, env.modeler, "Laptop", modeling.KindFrame)
			Expect(err).To(HaveOccurred())
		})

		It("refuses schema changes from a worker ticket", func() {
			_, err := env.Types.CreateType(ctx, env.worker, "Laptop", modeling.KindAsset)
			Expect(err).To(MatchError(modeling.ErrForbidden))
		})
	})

	Describe("Constraints", func() {
		It("expands a plugin constraint into its bundle properties", func() {
			et, err := env.Types.CreateType(ctx, env.modeler, "Server", modeling.KindAsset)
			Expect(err).NotTo(HaveOccurred())

			versions, err := env.Types.ListVersions(ctx, env.modeler, et.ID)
			Expect(err).NotTo(HaveOccurred())
			versionID := versions[0].ID

			added, err := env.Types.AddConstraint(ctx, env.modeler, versionID, modeling.ConstraintUsesPlugin, "audit-trail", "")
			Expect(err).NotTo(HaveOccurred())
			// uses_plugin + two has_property + one must_be_defined
			Expect(added).To(HaveLen(4))

			constraints, err := env.Types.ListConstraints(ctx, env.modeler, versionID)
			Expect(err).NotTo(HaveOccurred())
			Expect(constraints).To(HaveLen(4))
		})

		It("rejects an orphaned default declaration", func() {
			et, err := env.Types.CreateType(ctx, env.modeler, "Server", modeling.KindAsset)
			Expect(err).NotTo(HaveOccurred())

			versions, err := env.Types.ListVersions(ctx, env.modeler, et.ID)
			Expect(err).NotTo(HaveOccurred())

			_, err = env.Types.AddConstraint(ctx, env.modeler, versions[0].ID, modeling.ConstraintMustBeDefined, "ghost", "42")
			Expect(err).To(HaveOccurred())
		})

		It("fans new constraint properties out to existing entities", func() {
			_, versionID := newActiveType(ctx, "Server", modeling.KindAsset, [][3]string{
				{"has_property", "hostname", "text"},
			})

			created, err := env.Entities.CreateEntity(ctx, env.worker, versionID, []string{"db01"},
				modeling.ViewerInput{Maintainers: []string{"ops"}}, nil)
			Expect(err).NotTo(HaveOccurred())

			_, err = env.Types.AddConstraint(ctx, env.modeler, versionID, modeling.ConstraintHasProperty, "rack", "text")
			Expect(err).NotTo(HaveOccurred())

			view, err := env.Entities.GetEntity(ctx, env.worker, created.Ref)
			Expect(err).NotTo(HaveOccurred())
			Expect(view.Properties).To(HaveLen(2))
			Expect(view.Properties[1].Key).To(Equal("rack"))
			Expect(view.Properties[1].Value).To(Equal(""))
		})

		It("removes cascaded properties with their constraint", func() {
			_, versionID := newActiveType(ctx, "Server", modeling.KindAsset, [][3]string{
				{"has_property", "hostname", "text"},
				{"has_property", "rack", "text"},
			})

			created, err := env.Entities.CreateEntity(ctx, env.worker, versionID, []string{"db01", "r12"},
				modeling.ViewerInput{Maintainers: []string{"ops"}}, nil)
			Expect(err).NotTo(HaveOccurred())

			constraints, err := env.Types.ListConstraints(ctx, env.modeler, versionID)
			Expect(err).NotTo(HaveOccurred())

			var rackID ulid.ULID
			found := false
			for _, c := range constraints {
				if c.Kind == modeling.ConstraintHasProperty && c.Param1 == "rack" {
					rackID = c.ID
					found = true
				}
			}
			Expect(found).To(BeTrue())

			Expect(env.Types.RemoveConstraint(ctx, env.modeler, rackID)).To(Succeed())

			view, err := env.Entities.GetEntity(ctx, env.worker, created.Ref)
			Expect(err).NotTo(HaveOccurred())
			Expect(view.Properties).To(HaveLen(1))
			Expect(view.Properties[0].Key).To(Equal("hostname"))
		})
	})

	Describe("Versions", func() {
		It("forks a version with its constraints", func() {
			et, versionID := newActiveType(ctx, "Server", modeling.KindAsset, [][3]string{
				{"has_property", "hostname", "text"},
				{"must_be_defined", "hostname", "unnamed"},
			})

			Expect(env.Types.SetTypeActive(ctx, env.modeler, et.ID, false)).To(Succeed())

			fork, err := env.Types.ForkVersion(ctx, env.modeler, versionID)
			Expect(err).NotTo(HaveOccurred())
			Expect(fork.VersionNumber).To(Equal(int64(2)))

			constraints, err := env.Types.ListConstraints(ctx, env.modeler, fork.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(constraints).To(HaveLen(2))
		})

		It("refuses to delete a version entities still reference", func() {
			_, versionID := newActiveType(ctx, "Server", modeling.KindAsset, [][3]string{
				{"has_property", "hostname", "text"},
			})

			_, err := env.Entities.CreateEntity(ctx, env.worker, versionID, []string{"db01"},
				modeling.ViewerInput{Maintainers: []string{"ops"}}, nil)
			Expect(err).NotTo(HaveOccurred())

			Expect(env.Types.DeleteVersion(ctx, env.modeler, versionID)).NotTo(Succeed())
		})
	})
})
