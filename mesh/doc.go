// Package mesh draws static colored meshes through the native driver.
//
// A StaticMesh is uploaded once per distinct content: the Pipeline keeps a
// content-addressed cache of vertex and index buffers, so drawing the same
// geometry every frame, or from several objects, costs one upload.
//
//	p, err := mesh.NewPipeline(ctx, sc.DefaultFramebuffer(), 0)
//	buf.BeginWriting(sc.DefaultFramebuffer(), p)
//	p.BeginProcessing(buf, rhi.RectFromExtent(sc.Extent()))
//	for _, m := range meshes {
//		p.ProcessObject(buf, 0, m)
//	}
//	p.EndProcessing(buf)
//	buf.EndWriting()
//
// The vertex format "static_mesh" is registered with rhi when the package
// is imported.
package mesh
