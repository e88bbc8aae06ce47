package templates

// Built-in CadQuery recipes. Each script is self-contained: it imports the
// kernel, builds `result`, and exports an STL. Scripts are pre-vetted so
// substitution cannot fail for syntactic reasons, only for out-of-range
// parameters (filtered by the constraint checker before production).
var builtinRecipes = []Recipe{
	{
		Category: "cube",
		Params:   []string{"size"},
		Source: `import cadquery as cq

size = {{.size}}

result = cq.Workplane("XY").box(size, size, size)

cq.exporters.export(result, "output.stl")
`,
	},
	{
		Category: "heatsink",
		Params:   []string{"base_width", "base_depth", "base_height", "fin_count", "fin_height", "fin_thickness"},
		Source: `import cadquery as cq

base_width = {{.base_width}}
base_depth = {{.base_depth}}
base_height = {{.base_height}}
fin_count = int({{.fin_count}})
fin_height = {{.fin_height}}
fin_thickness = {{.fin_thickness}}

result = cq.Workplane("XY").box(base_width, base_depth, base_height)

pitch = base_width / fin_count
for i in range(fin_count):
    x = -base_width / 2 + pitch / 2 + i * pitch
    fin = (
        cq.Workplane("XY")
        .center(x, 0)
        .box(fin_thickness, base_depth, fin_height)
        .translate((0, 0, base_height / 2 + fin_height / 2))
    )
    result = result.union(fin)

cq.exporters.export(result, "output.stl")
`,
	},
	{
		Category: "honeycomb",
		Params:   []string{"panel_width", "panel_height", "panel_thickness", "cell_size", "wall_thickness"},
		Source: `import cadquery as cq
import math

panel_width = {{.panel_width}}
panel_height = {{.panel_height}}
panel_thickness = {{.panel_thickness}}
cell_size = {{.cell_size}}
wall_thickness = {{.wall_thickness}}

result = cq.Workplane("XY").box(panel_width, panel_height, panel_thickness)

pitch_x = cell_size + wall_thickness
pitch_y = (cell_size + wall_thickness) * math.sqrt(3) / 2
cols = int(panel_width / pitch_x) - 1
rows = int(panel_height / pitch_y) - 1

centers = []
for row in range(rows):
    for col in range(cols):
        x = -panel_width / 2 + pitch_x * (col + 1) + (pitch_x / 2 if row % 2 else 0)
        y = -panel_height / 2 + pitch_y * (row + 1)
        centers.append((x, y))

result = (
    result.faces(">Z")
    .workplane()
    .pushPoints(centers)
    .polygon(6, cell_size)
    .cutThruAll()
)

cq.exporters.export(result, "output.stl")
`,
	},
	{
		Category: "splint",
		Params:   []string{"length", "width", "thickness"},
		Source: `import cadquery as cq

length = {{.length}}
width = {{.width}}
thickness = {{.thickness}}

outer = width / 2 + thickness
result = (
    cq.Workplane("XY")
    .circle(outer)
    .circle(width / 2)
    .extrude(length)
    .copyWorkplane(cq.Workplane("XZ"))
    .rect(outer * 2, length * 2)
    .cutThruAll()
)

cq.exporters.export(result, "output.stl")
`,
	},
	{
		Category: "stent",
		Params:   []string{"diameter", "length", "strut_width"},
		Source: `import cadquery as cq
import math

diameter = {{.diameter}}
length = {{.length}}
strut_width = {{.strut_width}}

rings = int(length / (strut_width * 6))
result = cq.Workplane("XY").circle(diameter / 2).circle(diameter / 2 - strut_width).extrude(length)

slot_w = diameter * math.pi / 8
for i in range(rings):
    z = strut_width * 3 + i * strut_width * 6
    offset = slot_w / 2 if i % 2 else 0
    result = (
        result.faces(">Z")
        .workplane(offset=z - length)
        .center(offset, 0)
        .slot2D(slot_w, strut_width * 2)
        .cutThruAll()
    )

cq.exporters.export(result, "output.stl")
`,
	},
	{
		Category: "gripper",
		Params:   []string{"jaw_length", "jaw_width", "opening"},
		Source: `import cadquery as cq

jaw_length = {{.jaw_length}}
jaw_width = {{.jaw_width}}
opening = {{.opening}}

base = cq.Workplane("XY").box(opening + jaw_width * 2, jaw_width, jaw_width)
jaw = cq.Workplane("XY").box(jaw_width, jaw_width, jaw_length)

left = jaw.translate((-(opening + jaw_width) / 2, 0, (jaw_length + jaw_width) / 2))
right = jaw.translate(((opening + jaw_width) / 2, 0, (jaw_length + jaw_width) / 2))

result = base.union(left).union(right)

cq.exporters.export(result, "output.stl")
`,
	},
	{
		Category: "lattice",
		Params:   []string{"size", "cell_size", "strut_diameter"},
		Source: `import cadquery as cq

size = {{.size}}
cell_size = {{.cell_size}}
strut_diameter = {{.strut_diameter}}

cells = int(size / cell_size)
result = cq.Workplane("XY")

for i in range(cells + 1):
    for j in range(cells + 1):
        x = -size / 2 + i * cell_size
        y = -size / 2 + j * cell_size
        strut = (
            cq.Workplane("XY")
            .center(x, y)
            .circle(strut_diameter / 2)
            .extrude(size)
        )
        result = strut if i == 0 and j == 0 else result.union(strut)

cq.exporters.export(result, "output.stl")
`,
	},
	{
		Category: "facade_pyramid",
		Params:   []string{"panel_width", "panel_height", "pyramid_size", "pyramid_height"},
		Source: `import cadquery as cq

panel_width = {{.panel_width}}
panel_height = {{.panel_height}}
pyramid_size = {{.pyramid_size}}
pyramid_height = {{.pyramid_height}}

result = cq.Workplane("XY").box(panel_width, panel_height, pyramid_size / 4)

cols = int(panel_width / pyramid_size)
rows = int(panel_height / pyramid_size)
for row in range(rows):
    for col in range(cols):
        x = -panel_width / 2 + pyramid_size * (col + 0.5)
        y = -panel_height / 2 + pyramid_size * (row + 0.5)
        pyramid = (
            cq.Workplane("XY")
            .center(x, y)
            .rect(pyramid_size, pyramid_size)
            .workplane(offset=pyramid_height)
            .center(0, 0)
            .rect(0.01, 0.01)
            .loft()
            .translate((0, 0, pyramid_size / 8))
        )
        result = result.union(pyramid)

cq.exporters.export(result, "output.stl")
`,
	},
	{
		Category: "louvre_wall",
		Params:   []string{"wall_width", "wall_height", "slat_count", "slat_angle"},
		Source: `import cadquery as cq

wall_width = {{.wall_width}}
wall_height = {{.wall_height}}
slat_count = int({{.slat_count}})
slat_angle = {{.slat_angle}}

frame_depth = wall_height / slat_count
result = cq.Workplane("XY").box(wall_width, frame_depth, wall_height)
result = result.faces(">Y").shell(-frame_depth / 6)

pitch = wall_height / (slat_count + 1)
for i in range(slat_count):
    z = -wall_height / 2 + pitch * (i + 1)
    slat = (
        cq.Workplane("XY")
        .box(wall_width * 0.9, frame_depth * 0.8, pitch / 3)
        .rotate((0, 0, 0), (1, 0, 0), slat_angle)
        .translate((0, 0, z))
    )
    result = result.union(slat)

cq.exporters.export(result, "output.stl")
`,
	},
	{
		Category: "sine_wave_fins",
		Params:   []string{"length", "fin_count", "amplitude", "wavelength"},
		Source: `import cadquery as cq
import math

length = {{.length}}
fin_count = int({{.fin_count}})
amplitude = {{.amplitude}}
wavelength = {{.wavelength}}

base_height = amplitude / 2
result = cq.Workplane("XY").box(length, fin_count * amplitude, base_height)

points = []
steps = 40
for s in range(steps + 1):
    x = -length / 2 + length * s / steps
    points.append((x, amplitude * math.sin(2 * math.pi * x / wavelength)))

for i in range(fin_count):
    y = -fin_count * amplitude / 2 + amplitude * (i + 0.5)
    fin = (
        cq.Workplane("XZ")
        .polyline(points + [(length / 2, -amplitude), (-length / 2, -amplitude)])
        .close()
        .extrude(amplitude / 4)
        .translate((0, y, base_height / 2 + amplitude))
    )
    result = result.union(fin)

cq.exporters.export(result, "output.stl")
`,
	},
}
